// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"log/slog"

	"github.com/ferrywire/ferrywire/internal/backend"
)

// ReadinessChecker reports whether the backend side of the relay is up.
// Control-plane calls made before Running answer 503.
type ReadinessChecker interface {
	Running() bool
}

type Deps struct {
	Backend   backend.Client
	Ready     ReadinessChecker
	Logger    *slog.Logger
	Version   string
	Commit    string
	BuildDate string
}
