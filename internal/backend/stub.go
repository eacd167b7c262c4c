// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/ferrywire/ferrywire/internal/domain"
)

// StubClient is a stand-in backend for running the HTTP surface without the
// native automation process. Sends are logged and succeed; queries return
// empty results; Receive blocks until shutdown and emits no events.
type StubClient struct {
	Logger *slog.Logger
}

func (s *StubClient) log(op string, args ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Info("stub backend call", append([]any{"op", op}, args...)...)
}

func (s *StubClient) Ready(ctx context.Context) error { return nil }

func (s *StubClient) Receive(ctx context.Context) (domain.Message, error) {
	<-ctx.Done()
	return domain.Message{}, domain.ErrBackendClosed
}

func (s *StubClient) IsLogin(ctx context.Context) (bool, error) {
	s.log("is_login")
	return true, nil
}

func (s *StubClient) SelfWxid(ctx context.Context) (string, error) {
	s.log("self_wxid")
	return "wxid_stub", nil
}

func (s *StubClient) UserInfo(ctx context.Context) (UserInfo, error) {
	s.log("user_info")
	return UserInfo{Wxid: "wxid_stub", Name: "stub"}, nil
}

func (s *StubClient) MsgTypes(ctx context.Context) (map[int]string, error) {
	s.log("msg_types")
	return map[int]string{}, nil
}

func (s *StubClient) Contacts(ctx context.Context) ([]Contact, error) {
	s.log("contacts")
	return nil, nil
}

func (s *StubClient) Friends(ctx context.Context) ([]Contact, error) {
	s.log("friends")
	return nil, nil
}

func (s *StubClient) DBs(ctx context.Context) ([]string, error) {
	s.log("dbs")
	return nil, nil
}

func (s *StubClient) Tables(ctx context.Context, db string) ([]Table, error) {
	s.log("tables", "db", db)
	return nil, nil
}

func (s *StubClient) RefreshMoments(ctx context.Context, id int) error {
	s.log("refresh_moments", "id", id)
	return nil
}

func (s *StubClient) ChatroomMembers(ctx context.Context, roomID string) (map[string]string, error) {
	s.log("chatroom_members", "roomid", roomID)
	return map[string]string{}, nil
}

func (s *StubClient) AliasInChatroom(ctx context.Context, wxid, roomID string) (string, error) {
	s.log("alias_in_chatroom", "wxid", wxid, "roomid", roomID)
	return "", nil
}

func (s *StubClient) OCRResult(ctx context.Context, extra string, timeout time.Duration) (string, error) {
	s.log("ocr_result", "extra", extra)
	return "", nil
}

func (s *StubClient) SendText(ctx context.Context, msg, receiver, aters string) error {
	s.log("send_text", "receiver", receiver, "aters", aters)
	return nil
}

func (s *StubClient) SendImage(ctx context.Context, path, receiver string) error {
	s.log("send_image", "path", path, "receiver", receiver)
	return nil
}

func (s *StubClient) SendFile(ctx context.Context, path, receiver string) error {
	s.log("send_file", "path", path, "receiver", receiver)
	return nil
}

func (s *StubClient) SendRichText(ctx context.Context, card RichText) error {
	s.log("send_rich_text", "receiver", card.Receiver, "title", card.Title)
	return nil
}

func (s *StubClient) SendPat(ctx context.Context, roomID, wxid string) error {
	s.log("send_pat", "roomid", roomID, "wxid", wxid)
	return nil
}

func (s *StubClient) QuerySQL(ctx context.Context, db, sql string) ([]map[string]any, error) {
	s.log("query_sql", "db", db)
	return nil, nil
}

func (s *StubClient) AcceptFriend(ctx context.Context, v3, v4 string, scene int) error {
	s.log("accept_friend", "scene", scene)
	return nil
}

func (s *StubClient) AddChatroomMembers(ctx context.Context, roomID, wxids string) error {
	s.log("add_chatroom_members", "roomid", roomID, "wxids", wxids)
	return nil
}

func (s *StubClient) InviteChatroomMembers(ctx context.Context, roomID, wxids string) error {
	s.log("invite_chatroom_members", "roomid", roomID, "wxids", wxids)
	return nil
}

func (s *StubClient) DelChatroomMembers(ctx context.Context, roomID, wxids string) error {
	s.log("del_chatroom_members", "roomid", roomID, "wxids", wxids)
	return nil
}

func (s *StubClient) ReceiveTransfer(ctx context.Context, wxid, transferID, transactionID string) error {
	s.log("receive_transfer", "wxid", wxid)
	return nil
}

func (s *StubClient) DownloadImage(ctx context.Context, id uint64, extra, dir string, timeout time.Duration) (string, error) {
	s.log("download_image", "id", id, "dir", dir)
	return "", nil
}

func (s *StubClient) SaveAudio(ctx context.Context, id uint64, dir string, timeout time.Duration) (string, error) {
	s.log("save_audio", "id", id, "dir", dir)
	return "", nil
}
