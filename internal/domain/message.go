// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Message is one inbound notification from the automation backend, in the
// shape the backend reports it. It is forwarded verbatim as the webhook body.
type Message struct {
	ID      uint64 `json:"id"`
	Ts      int64  `json:"ts"`
	Sign    string `json:"sign"`
	Type    int    `json:"type"`
	XML     string `json:"xml"`
	Sender  string `json:"sender"`
	RoomID  string `json:"roomid"`
	Content string `json:"content"`
	Thumb   string `json:"thumb"`
	Extra   string `json:"extra"`
	IsAt    bool   `json:"is_at"`
	IsSelf  bool   `json:"is_self"`
	IsGroup bool   `json:"is_group"`
}

// Hash returns a stable digest of the message body. Consumers that see the
// same seq more than once after a backend reconnect can dedupe on
// seq + kind + hash.
func (m Message) Hash() string {
	body, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
