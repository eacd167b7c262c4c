// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/ferrywire/ferrywire/internal/domain"
)

// UserInfo is the logged-in account profile.
type UserInfo struct {
	Wxid   string `json:"wxid"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Home   string `json:"home"`
}

// Contact is one address-book entry.
type Contact struct {
	Wxid     string `json:"wxid"`
	Code     string `json:"code"`
	Remark   string `json:"remark"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Province string `json:"province"`
	City     string `json:"city"`
	Gender   string `json:"gender"`
}

// Table is one table of a backend database.
type Table struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// RichText is the payload of a rich-text card message.
type RichText struct {
	Name     string
	Account  string
	Title    string
	Digest   string
	URL      string
	ThumbURL string
	Receiver string
}

// OpError is a failure the backend itself reported for an operation.
// Transport-level failures are plain wrapped errors instead.
type OpError struct {
	Op     string
	Status int
}

func (e *OpError) Error() string {
	return fmt.Sprintf("backend op %s failed with status %d", e.Op, e.Status)
}

// Client is the narrow capability surface of the automation backend.
// Receive blocks until a message arrives, the context is canceled, or the
// backend shuts down (domain.ErrBackendClosed). Implementations are not
// required to be safe for concurrent use; wrap with Gate when the adapter
// and the control-plane share one connection handle.
type Client interface {
	Ready(ctx context.Context) error
	Receive(ctx context.Context) (domain.Message, error)

	IsLogin(ctx context.Context) (bool, error)
	SelfWxid(ctx context.Context) (string, error)
	UserInfo(ctx context.Context) (UserInfo, error)
	MsgTypes(ctx context.Context) (map[int]string, error)
	Contacts(ctx context.Context) ([]Contact, error)
	Friends(ctx context.Context) ([]Contact, error)
	DBs(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, db string) ([]Table, error)
	RefreshMoments(ctx context.Context, id int) error
	ChatroomMembers(ctx context.Context, roomID string) (map[string]string, error)
	AliasInChatroom(ctx context.Context, wxid, roomID string) (string, error)
	OCRResult(ctx context.Context, extra string, timeout time.Duration) (string, error)

	SendText(ctx context.Context, msg, receiver, aters string) error
	SendImage(ctx context.Context, path, receiver string) error
	SendFile(ctx context.Context, path, receiver string) error
	SendRichText(ctx context.Context, card RichText) error
	SendPat(ctx context.Context, roomID, wxid string) error

	QuerySQL(ctx context.Context, db, sql string) ([]map[string]any, error)
	AcceptFriend(ctx context.Context, v3, v4 string, scene int) error
	AddChatroomMembers(ctx context.Context, roomID, wxids string) error
	InviteChatroomMembers(ctx context.Context, roomID, wxids string) error
	DelChatroomMembers(ctx context.Context, roomID, wxids string) error
	ReceiveTransfer(ctx context.Context, wxid, transferID, transactionID string) error
	DownloadImage(ctx context.Context, id uint64, extra, dir string, timeout time.Duration) (string, error)
	SaveAudio(ctx context.Context, id uint64, dir string, timeout time.Duration) (string, error)
}
