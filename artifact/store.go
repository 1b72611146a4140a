package artifact

// Store persists opaque blobs. Implementations must be safe for concurrent
// use and must copy data so callers cannot mutate stored bytes.
type Store interface {
	Save(namespace, name string, data []byte) error
	Get(namespace, name string) ([]byte, error)
	List(namespace string) ([]string, error)
	Delete(namespace, name string) error
}
