package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/harmony-sync/internal/core"
	"github.com/vovakirdan/harmony-sync/internal/dispatch"
	"github.com/vovakirdan/harmony-sync/internal/session"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

type fakeLoop struct {
	cmds []core.Command
	err  error
}

func (f *fakeLoop) Do(_ context.Context, cmd core.Command) error {
	f.cmds = append(f.cmds, cmd)
	return f.err
}

func newTestServer(loop Commander, st Snapshotter) *http.Server {
	logger := zerolog.Nop()
	return NewServer(":0", loop, st, &logger)
}

func do(t *testing.T, srv *http.Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	srv.Handler.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeLoop{}, state.New())
	resp := do(t, srv, http.MethodGet, "/health", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestStateReturnsSnapshot(t *testing.T) {
	st := state.New()
	st.ReplaceGuilds(map[string]state.Guild{"g1": {Name: "one"}})
	st.SetConnected(true)
	srv := newTestServer(&fakeLoop{}, st)

	resp := do(t, srv, http.MethodGet, "/state", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var snap state.Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !snap.Connected || snap.Guilds["g1"].Name != "one" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSelectIssuesGuildThenChannel(t *testing.T) {
	loop := &fakeLoop{}
	srv := newTestServer(loop, state.New())

	resp := do(t, srv, http.MethodPost, "/select", `{"guild":"g1","channel":"c1"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(loop.cmds) != 2 ||
		loop.cmds[0].Kind != core.CommandSelectGuild || loop.cmds[0].Guild != "g1" ||
		loop.cmds[1].Kind != core.CommandSelectChannel || loop.cmds[1].Channel != "c1" {
		t.Fatalf("unexpected commands %+v", loop.cmds)
	}
}

func TestSelectRejectsChannelWithoutGuild(t *testing.T) {
	loop := &fakeLoop{}
	srv := newTestServer(loop, state.New())

	resp := do(t, srv, http.MethodPost, "/select", `{"channel":"c1"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if len(loop.cmds) != 0 {
		t.Fatal("command issued for invalid selection")
	}
}

func TestSendMessageErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		body string
		code int
	}{
		{"ok", nil, `{"text":"hi"}`, http.StatusAccepted},
		{"missing text", nil, `{}`, http.StatusBadRequest},
		{"no channel", core.ErrNoChannel, `{"text":"hi"}`, http.StatusConflict},
		{"offline", fmt.Errorf("message: %w", dispatch.ErrNotOpen), `{"text":"hi"}`, http.StatusServiceUnavailable},
		{"ended", dispatch.ErrSessionEnded, `{"text":"hi"}`, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakeLoop{err: tc.err}, state.New())
			resp := do(t, srv, http.MethodPost, "/messages", tc.body)
			if resp.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestRefresh(t *testing.T) {
	loop := &fakeLoop{}
	srv := newTestServer(loop, state.New())
	resp := do(t, srv, http.MethodPost, "/refresh", "")
	if resp.Code != http.StatusAccepted || len(loop.cmds) != 1 || loop.cmds[0].Kind != core.CommandRefresh {
		t.Fatalf("unexpected refresh result %d %+v", resp.Code, loop.cmds)
	}
}

func TestGuildRoutesIssueCommands(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   core.Command
	}{
		{"join", http.MethodPost, "/guilds/join", `{"invite":"abc"}`,
			core.Command{Kind: core.CommandJoinGuild, Invite: "abc"}},
		{"create", http.MethodPost, "/guilds", `{"name":"home","picture":"p.png"}`,
			core.Command{Kind: core.CommandCreateGuild, Name: "home", Picture: "p.png"}},
		{"leave", http.MethodPost, "/guilds/g1/leave", "",
			core.Command{Kind: core.CommandLeaveGuild, Guild: "g1"}},
		{"rename", http.MethodPut, "/guilds/g1/name", `{"name":"two"}`,
			core.Command{Kind: core.CommandUpdateGuildName, Guild: "g1", Name: "two"}},
		{"picture", http.MethodPut, "/guilds/g1/picture", `{"picture":"q.png"}`,
			core.Command{Kind: core.CommandUpdateGuildPicture, Guild: "g1", Picture: "q.png"}},
		{"add channel", http.MethodPost, "/guilds/g1/channels", `{"name":"general"}`,
			core.Command{Kind: core.CommandAddChannel, Guild: "g1", Name: "general"}},
		{"delete channel", http.MethodDelete, "/guilds/g1/channels/c1", "",
			core.Command{Kind: core.CommandDeleteChannel, Guild: "g1", Channel: "c1"}},
		{"invites", http.MethodPost, "/guilds/g1/invites/refresh", "",
			core.Command{Kind: core.CommandGetInvites, Guild: "g1"}},
		{"create invite", http.MethodPost, "/guilds/g1/invites", "",
			core.Command{Kind: core.CommandCreateInvite, Guild: "g1"}},
		{"delete invite", http.MethodDelete, "/guilds/g1/invites/abc", "",
			core.Command{Kind: core.CommandDeleteInvite, Guild: "g1", Invite: "abc"}},
		{"user", http.MethodPost, "/users/u1/refresh", "",
			core.Command{Kind: core.CommandGetUser, User: "u1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loop := &fakeLoop{}
			srv := newTestServer(loop, state.New())
			resp := do(t, srv, tc.method, tc.path, tc.body)
			if resp.Code != http.StatusAccepted {
				t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
			}
			if len(loop.cmds) != 1 {
				t.Fatalf("expected one command, got %+v", loop.cmds)
			}
			got := loop.cmds[0]
			got.Done = nil
			if got != tc.want {
				t.Fatalf("command %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestGuildRoutesRejectMissingFields(t *testing.T) {
	paths := []struct{ method, path string }{
		{http.MethodPost, "/guilds/join"},
		{http.MethodPost, "/guilds"},
		{http.MethodPut, "/guilds/g1/name"},
		{http.MethodPut, "/guilds/g1/picture"},
		{http.MethodPost, "/guilds/g1/channels"},
	}
	for _, p := range paths {
		loop := &fakeLoop{}
		srv := newTestServer(loop, state.New())
		resp := do(t, srv, p.method, p.path, `{}`)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d", p.method, p.path, resp.Code)
		}
		if len(loop.cmds) != 0 {
			t.Fatalf("%s %s: command issued for invalid body", p.method, p.path)
		}
	}
}

func TestCommandErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"bad request", fmt.Errorf("createguild: %w", dispatch.ErrBadRequest), http.StatusBadRequest},
		{"inactive", session.ErrInactive, http.StatusConflict},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakeLoop{err: tc.err}, state.New())
			resp := do(t, srv, http.MethodPost, "/guilds/g1/leave", "")
			if resp.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, resp.Code)
			}
		})
	}
}
