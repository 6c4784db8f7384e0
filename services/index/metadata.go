package index

// MetadataStore keeps rebuild request progress and the description of the serving index.
// kvdb.DB satisfies it.
type MetadataStore interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
}
