package domain

// NextAfterRemoval picks the position to display after the record at
// removedPosition was taken out of a list that now holds newLength records.
//
// The record that slid into the removed slot wins; when the last record was
// removed, the one before it does. ok is false when nothing is left to show.
func NextAfterRemoval(removedPosition, newLength int) (position int, ok bool) {
	if newLength <= 0 {
		return 0, false
	}

	if removedPosition >= 0 && removedPosition < newLength {
		return removedPosition, true
	}

	prev := removedPosition - 1
	if prev < 0 {
		return 0, false
	}

	// A stale removedPosition past the end still lands on the last record.
	return min(prev, newLength-1), true
}
