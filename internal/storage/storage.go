package storage

// Sink receives decode output records.
type Sink interface {
	Write(value interface{}) error
	Close() error
}
