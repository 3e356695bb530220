package burn

import "strings"

// FinalizedPrefix marks storage paths whose object already contains burned
// marks. Burns from later signers accumulate into the same artifact.
const FinalizedPrefix = "signed/"

// FinalizedPath returns the storage path for burned bytes. The first burn
// moves the object under the finalized prefix; subsequent burns keep it there.
func FinalizedPath(current string) string {
	if strings.HasPrefix(current, FinalizedPrefix) {
		return current
	}
	return FinalizedPrefix + current
}
