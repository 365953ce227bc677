package storage

// Archiver is the contract for the scan-record archive. Completed scans are
// written as timestamped JSON blobs for offline analysis; the archive is
// optional and never on the scan's critical path.
type Archiver interface {
	Store(filename string, data []byte) error
	Retrieve(filename string) ([]byte, error)
	List(prefix string) ([]string, error)
}
