package ragindex

// ShouldActivate reports whether the retrieval index should be built for
// this evaluation: true iff the diff's byte size exceeds ragThreshold.
func ShouldActivate(diffSize int64, ragThreshold int64) bool {
	return diffSize > ragThreshold
}
