package storage

// Replicator receives the payload of every successful write to a replicated
// key. Implementations must return quickly; the write path does not wait for
// replication.
type Replicator interface {
	ReplicateDataset(data []byte)
	ReplicateAudit(lines []byte)
}

// ReplicatingStorage forwards to an underlying Storage and hands successful
// writes of the dataset key and appends to the audit key to a Replicator.
type ReplicatingStorage struct {
	base       Storage
	dataKey    string
	auditKey   string
	replicator Replicator
}

// Wrap decorates base with replication. Wrapping an already replicating
// storage returns it unchanged, so installation happens at most once.
func Wrap(base Storage, dataKey, auditKey string, replicator Replicator) Storage {
	if rs, ok := base.(*ReplicatingStorage); ok {
		return rs
	}
	return &ReplicatingStorage{
		base:       base,
		dataKey:    dataKey,
		auditKey:   auditKey,
		replicator: replicator,
	}
}

// Unwrap returns the decorated storage.
func (s *ReplicatingStorage) Unwrap() Storage {
	return s.base
}

func (s *ReplicatingStorage) Read(key string) ([]byte, error) {
	return s.base.Read(key)
}

func (s *ReplicatingStorage) Write(key string, data []byte) error {
	if err := s.base.Write(key, data); err != nil {
		return err
	}
	if key == s.dataKey {
		s.replicator.ReplicateDataset(clone(data))
	}
	return nil
}

func (s *ReplicatingStorage) Append(key string, data []byte) error {
	if err := s.base.Append(key, data); err != nil {
		return err
	}
	if key == s.auditKey {
		s.replicator.ReplicateAudit(clone(data))
	}
	return nil
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
