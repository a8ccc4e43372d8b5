package database

// GenesisProgress records the last fully-committed group index for a
// genesis source table, the per-table resumability cursor of spec.md §3/§4.6.
func (s *Store) GetGenesisProgress(table string) (groupIndex int, found bool, err error) {
	v, found, err := s.Get(ColumnGenesisProgress, []byte(table))
	if err != nil || !found {
		return -1, found, err
	}
	return int(decodeUint64(v)), true, nil
}

func SetGenesisProgress(t *Txn, table string, groupIndex int) {
	t.Put(ColumnGenesisProgress, []byte(table), encodeUint64(uint64(groupIndex)))
}

// ClearGenesisStaging deletes every genesis-progress and Merkle-staging row
// in a single commit, per spec.md §4.6's final step. It finds the rows with
// a full scan (via Iter) of each genesis column and queues their deletes on t.
func ClearGenesisStaging(t *Txn, store *Store) error {
	for _, col := range genesisColumns {
		it := store.Iter(col, nil, Forward)
		var keys [][]byte
		for it.Next() {
			keys = append(keys, append([]byte(nil), it.Key()...))
		}
		it.Release()
		if err := it.Error(); err != nil {
			return err
		}
		for _, k := range keys {
			t.Delete(col, k)
		}
	}
	return nil
}
