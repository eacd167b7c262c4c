// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"math/rand"
	"time"
)

// fullJitter returns a random wait in [0, min(max, base*2^(attempt-1))].
// Full jitter spreads retries of independent failures instead of
// synchronizing them.
func fullJitter(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	ceiling := base
	for i := 1; i < attempt; i++ {
		ceiling *= 2
		if ceiling >= max {
			ceiling = max
			break
		}
	}
	if max > 0 && ceiling > max {
		ceiling = max
	}

	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}
