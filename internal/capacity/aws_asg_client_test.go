package capacity

// Compile-time interface check: AWSASGClient must implement ASGClient.
var _ ASGClient = (*AWSASGClient)(nil)
