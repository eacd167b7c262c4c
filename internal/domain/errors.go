// SPDX-License-Identifier: Apache-2.0

package domain

import "errors"

var ErrQueueFull = errors.New("delivery queue full")
var ErrQueueClosed = errors.New("delivery queue closed")
var ErrBackendUnavailable = errors.New("backend unavailable")
var ErrBackendClosed = errors.New("backend closed")
