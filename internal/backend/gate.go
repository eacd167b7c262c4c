// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"sync"
	"time"

	"github.com/ferrywire/ferrywire/internal/domain"
)

// Gate serializes operation calls on a shared backend connection. The
// adapter's Receive loop and control-plane handlers may run concurrently;
// the underlying handle is only serially reentrant, so every invocation
// goes through one mutex. Receive is deliberately NOT gated: it blocks for
// arbitrarily long and holding the lock across it would starve the
// control-plane.
type Gate struct {
	mu     sync.Mutex
	client Client
}

func NewGate(client Client) *Gate {
	return &Gate{client: client}
}

func (g *Gate) Ready(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Ready(ctx)
}

func (g *Gate) Receive(ctx context.Context) (domain.Message, error) {
	return g.client.Receive(ctx)
}

func (g *Gate) IsLogin(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.IsLogin(ctx)
}

func (g *Gate) SelfWxid(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.SelfWxid(ctx)
}

func (g *Gate) UserInfo(ctx context.Context) (UserInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.UserInfo(ctx)
}

func (g *Gate) MsgTypes(ctx context.Context) (map[int]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.MsgTypes(ctx)
}

func (g *Gate) Contacts(ctx context.Context) ([]Contact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Contacts(ctx)
}

func (g *Gate) Friends(ctx context.Context) ([]Contact, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Friends(ctx)
}

func (g *Gate) DBs(ctx context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.DBs(ctx)
}

func (g *Gate) Tables(ctx context.Context, db string) ([]Table, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Tables(ctx, db)
}

func (g *Gate) RefreshMoments(ctx context.Context, id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.RefreshMoments(ctx, id)
}

func (g *Gate) ChatroomMembers(ctx context.Context, roomID string) (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.ChatroomMembers(ctx, roomID)
}

func (g *Gate) AliasInChatroom(ctx context.Context, wxid, roomID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.AliasInChatroom(ctx, wxid, roomID)
}

func (g *Gate) OCRResult(ctx context.Context, extra string, timeout time.Duration) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.OCRResult(ctx, extra, timeout)
}

func (g *Gate) SendText(ctx context.Context, msg, receiver, aters string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.SendText(ctx, msg, receiver, aters)
}

func (g *Gate) SendImage(ctx context.Context, path, receiver string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.SendImage(ctx, path, receiver)
}

func (g *Gate) SendFile(ctx context.Context, path, receiver string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.SendFile(ctx, path, receiver)
}

func (g *Gate) SendRichText(ctx context.Context, card RichText) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.SendRichText(ctx, card)
}

func (g *Gate) SendPat(ctx context.Context, roomID, wxid string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.SendPat(ctx, roomID, wxid)
}

func (g *Gate) QuerySQL(ctx context.Context, db, sql string) ([]map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.QuerySQL(ctx, db, sql)
}

func (g *Gate) AcceptFriend(ctx context.Context, v3, v4 string, scene int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.AcceptFriend(ctx, v3, v4, scene)
}

func (g *Gate) AddChatroomMembers(ctx context.Context, roomID, wxids string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.AddChatroomMembers(ctx, roomID, wxids)
}

func (g *Gate) InviteChatroomMembers(ctx context.Context, roomID, wxids string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.InviteChatroomMembers(ctx, roomID, wxids)
}

func (g *Gate) DelChatroomMembers(ctx context.Context, roomID, wxids string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.DelChatroomMembers(ctx, roomID, wxids)
}

func (g *Gate) ReceiveTransfer(ctx context.Context, wxid, transferID, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.ReceiveTransfer(ctx, wxid, transferID, transactionID)
}

func (g *Gate) DownloadImage(ctx context.Context, id uint64, extra, dir string, timeout time.Duration) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.DownloadImage(ctx, id, extra, dir, timeout)
}

func (g *Gate) SaveAudio(ctx context.Context, id uint64, dir string, timeout time.Duration) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.SaveAudio(ctx, id, dir, timeout)
}
