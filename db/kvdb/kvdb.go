package kvdb

const (
	DocumentsBucket = "documents"
	RequestsBucket  = "requests"
	MetaBucket      = "meta"
)

var buckets = []string{DocumentsBucket, RequestsBucket, MetaBucket}

type DB interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	ForEach(bucket string, fn func(key string, value []byte) error) error
	Close() error
}
