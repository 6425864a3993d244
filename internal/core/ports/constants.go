package ports

const (
	// DefaultPayoutBatchSize caps how many ready orders one dispatcher tick claims.
	DefaultPayoutBatchSize = 20
)
