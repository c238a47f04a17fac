package config

import (
	"fmt"
)

// IndexKeys builds the Redis key layout of the degree search index.
type IndexKeys struct {
	prefix string
}

func NewIndexKeys(prefix string) *IndexKeys {
	return &IndexKeys{prefix: prefix}
}

// Doc returns the hash key holding the indexed document for a degree
func (k *IndexKeys) Doc(id string) string {
	return fmt.Sprintf("%s:doc:%s", k.prefix, id)
}

// Term returns the posting hash key for a term within one document field.
// Hash fields are degree IDs, values are term frequencies.
func (k *IndexKeys) Term(field, term string) string {
	return fmt.Sprintf("%s:term:%s:%s", k.prefix, field, term)
}

// Stats returns the hash key holding document count and per-field length totals
func (k *IndexKeys) Stats() string {
	return fmt.Sprintf("%s:stats", k.prefix)
}

// Pattern matches every key owned by the index
func (k *IndexKeys) Pattern() string {
	return k.prefix + ":*"
}
