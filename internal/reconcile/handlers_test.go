package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/vovakirdan/harmony-sync/internal/bus"
	"github.com/vovakirdan/harmony-sync/internal/conn"
	"github.com/vovakirdan/harmony-sync/internal/conn/conntest"
	"github.com/vovakirdan/harmony-sync/internal/dispatch"
	"github.com/vovakirdan/harmony-sync/internal/notify/notifytest"
	"github.com/vovakirdan/harmony-sync/internal/proto"
	"github.com/vovakirdan/harmony-sync/internal/state"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type fixture struct {
	bus      *bus.Bus
	state    *state.Store
	tr       *conntest.Transport
	dispatch *dispatch.Dispatcher
	rec      *notifytest.Recorder
	h        *Handlers
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()

	tr := conntest.New(conn.Open)
	tracker := conn.NewTracker(tr)
	tokens := staticToken(token)
	d := dispatch.New(tr, tracker, tokens, nil)
	rec := &notifytest.Recorder{}
	st := state.New()
	b := bus.New(nil)

	h := New(Deps{
		State:    st,
		Dispatch: d,
		Tracker:  tracker,
		Tokens:   tokens,
		Notify:   rec,
		Navigate: rec,
	})
	for _, binding := range h.Table() {
		b.On(binding.Kind, binding.Handler)
	}
	for _, binding := range h.Global() {
		b.On(binding.Kind, binding.Handler)
	}

	return &fixture{bus: b, state: st, tr: tr, dispatch: d, rec: rec, h: h}
}

func (f *fixture) emit(kind, raw string) {
	f.bus.Emit(kind, json.RawMessage(raw))
}

// selectChannel puts the cursor on guild/channel and issues the matching fetches.
func (f *fixture) selectChannel(t *testing.T, guild, channel string) {
	t.Helper()
	f.state.SelectGuild(guild)
	f.state.SelectChannel(channel)
	if err := f.dispatch.GetMessages(guild, channel); err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
}

func TestGetMessagesReversesOnIngest(t *testing.T) {
	f := newFixture(t, "tok")
	f.selectChannel(t, "g1", "c1")

	f.emit(proto.EventGetMessages, `{"messages":[
		{"userid":"u","createdat":3,"guild":"g1","message":"third"},
		{"userid":"u","createdat":2,"guild":"g1","message":"second"},
		{"userid":"u","createdat":1,"guild":"g1","message":"first"}
	]}`)

	msgs := f.state.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []int64{1, 2, 3} {
		if msgs[i].CreatedAt != want {
			t.Fatalf("message %d has t=%d, want %d", i, msgs[i].CreatedAt, want)
		}
	}
}

func TestGetMessagesNullAndAbsent(t *testing.T) {
	f := newFixture(t, "tok")
	f.selectChannel(t, "g1", "c1")
	f.state.AppendMessage(state.Message{UserID: "u", CreatedAt: 1, Guild: "g1", Message: "keep"})

	f.emit(proto.EventGetMessages, `{"other":true}`)
	if len(f.state.Messages()) != 1 {
		t.Fatal("absent messages field must leave the sequence unchanged")
	}

	_ = f.dispatch.GetMessages("g1", "c1")
	f.emit(proto.EventGetMessages, `{"messages":null}`)
	if len(f.state.Messages()) != 0 {
		t.Fatal("null messages must empty the sequence")
	}
}

func TestGetMessagesStaleReplyDiscarded(t *testing.T) {
	f := newFixture(t, "tok")
	f.selectChannel(t, "g1", "c1")
	f.state.SelectChannel("c2")
	_ = f.dispatch.GetMessages("g1", "c2")

	f.emit(proto.EventGetMessages, `{"messages":[{"userid":"u","createdat":1,"guild":"g1","message":"from c1"}]}`)
	if len(f.state.Messages()) != 0 {
		t.Fatal("reply for the previous channel was applied")
	}

	f.emit(proto.EventGetMessages, `{"messages":[{"userid":"u","createdat":2,"guild":"g1","message":"from c2"}]}`)
	msgs := f.state.Messages()
	if len(msgs) != 1 || msgs[0].Message != "from c2" {
		t.Fatalf("current reply not applied: %+v", msgs)
	}
}

func TestGetGuildsEmptyClearsSelection(t *testing.T) {
	f := newFixture(t, "tok")
	f.emit(proto.EventGetGuilds, `{"guilds":{"g1":{"guildname":"one","picture":"p.png"}}}`)
	f.selectChannel(t, "g1", "c1")
	f.state.ReplaceChannels(map[string]string{"c1": "general"})
	f.state.AppendMessage(state.Message{Message: "hi"})

	f.emit(proto.EventGetGuilds, `{"guilds":{}}`)

	snap := f.state.Snapshot()
	if snap.Selection.HasGuild() || len(snap.Messages) != 0 || len(snap.Channels) != 0 || len(snap.Guilds) != 0 {
		t.Fatalf("empty guild list did not clear state: %+v", snap)
	}
}

func TestGetGuildsRejectsMalformed(t *testing.T) {
	f := newFixture(t, "tok")
	f.emit(proto.EventGetGuilds, `{"guilds":{"g1":{"guildname":"one"}}}`)

	for _, raw := range []string{
		`{"guilds":"nope"}`,
		`{"guilds":["g2"]}`,
		`{"guilds":{"g2":"not an object"}}`,
		`[]`,
		`null`,
	} {
		f.emit(proto.EventGetGuilds, raw)
	}

	g, ok := f.state.Guild("g1")
	if !ok || g.Name != "one" {
		t.Fatalf("malformed payload mutated guilds: %+v", f.state.Snapshot().Guilds)
	}
	if len(f.rec.Notices) != 0 {
		t.Fatalf("malformed payloads must be silent, got %+v", f.rec.Notices)
	}
}

func TestNewMessageValidation(t *testing.T) {
	f := newFixture(t, "tok")
	f.state.SelectGuild("g1")
	f.state.SelectChannel("c1")

	tests := []struct {
		name string
		raw  string
	}{
		{"missing userid", `{"createdat":1,"guild":"g1","message":"x"}`},
		{"missing createdat", `{"userid":"u","guild":"g1","message":"x"}`},
		{"missing guild", `{"userid":"u","createdat":1,"message":"x"}`},
		{"missing message", `{"userid":"u","createdat":1,"guild":"g1"}`},
		{"createdat as string", `{"userid":"u","createdat":"1","guild":"g1","message":"x"}`},
		{"userid as number", `{"userid":7,"createdat":1,"guild":"g1","message":"x"}`},
		{"message as null", `{"userid":"u","createdat":1,"guild":"g1","message":null}`},
		{"not an object", `"hello"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.emit(proto.EventMessage, tt.raw)
			if n := len(f.state.Messages()); n != 0 {
				t.Fatalf("malformed message appended, have %d", n)
			}
		})
	}

	f.emit(proto.EventMessage, `{"userid":"u","createdat":5,"guild":"g1","message":"ok"}`)
	if n := len(f.state.Messages()); n != 1 {
		t.Fatalf("valid message not appended, have %d", n)
	}
	f.emit(proto.EventMessage, `{"userid":"u","createdat":6,"guild":"g2","message":"elsewhere"}`)
	if n := len(f.state.Messages()); n != 1 {
		t.Fatal("message for another guild appended")
	}
}

func TestChannelsRoundTripAndStaleGuild(t *testing.T) {
	f := newFixture(t, "tok")

	f.state.SelectGuild("g1")
	_ = f.dispatch.GetChannels("g1")
	f.state.SelectGuild("g2")
	_ = f.dispatch.GetChannels("g2")

	f.emit(proto.EventGetChannels, `{"channels":{"old":"from g1"}}`)
	if len(f.state.Channels()) != 0 {
		t.Fatalf("stale reply applied: %+v", f.state.Channels())
	}

	f.emit(proto.EventGetChannels, `{"channels":{"c1":"general"}}`)
	ch := f.state.Channels()
	if len(ch) != 1 || ch["c1"] != "general" {
		t.Fatalf("unexpected channels %+v", ch)
	}
}

func TestChannelsEchoedGuildOverridesTag(t *testing.T) {
	f := newFixture(t, "tok")
	f.state.SelectGuild("g2")
	_ = f.dispatch.GetChannels("g2")

	f.emit(proto.EventGetChannels, `{"guild":"g1","channels":{"x":"y"}}`)
	if len(f.state.Channels()) != 0 {
		t.Fatal("reply echoing another guild was applied")
	}
}

func TestChannelsAbsentClears(t *testing.T) {
	f := newFixture(t, "tok")
	f.state.SelectGuild("g1")
	f.state.ReplaceChannels(map[string]string{"c1": "general"})
	_ = f.dispatch.GetChannels("g1")

	f.emit(proto.EventGetChannels, `{}`)
	if len(f.state.Channels()) != 0 {
		t.Fatal("absent channels field must clear the mapping")
	}
}

func TestAddAndDeleteChannelScopedToSelectedGuild(t *testing.T) {
	f := newFixture(t, "tok")
	f.state.SelectGuild("g1")

	f.emit(proto.EventAddChannel, `{"guild":"g2","channelid":"x","channelname":"other"}`)
	f.emit(proto.EventAddChannel, `{"guild":"g1","channelid":"c1","channelname":"general"}`)
	f.emit(proto.EventAddChannel, `{"guild":"g1","channelid":5,"channelname":"bad"}`)

	ch := f.state.Channels()
	if len(ch) != 1 || ch["c1"] != "general" {
		t.Fatalf("unexpected channels after add: %+v", ch)
	}

	f.emit(proto.EventDeleteChannel, `{"guild":"g2","channelid":"c1"}`)
	if len(f.state.Channels()) != 1 {
		t.Fatal("delete for another guild applied")
	}
	f.emit(proto.EventDeleteChannel, `{"guild":"g1","channelid":"c1"}`)
	if len(f.state.Channels()) != 0 {
		t.Fatal("delete not applied")
	}
}

func TestLeaveGuildAck(t *testing.T) {
	f := newFixture(t, "tok")

	f.emit(proto.EventLeaveGuild, `{"message":"you own this guild"}`)
	if f.tr.CountType(proto.RequestGetGuilds) != 0 {
		t.Fatal("failed leave re-requested guilds")
	}
	if n, ok := f.rec.Last(); !ok || n.Level != "error" || n.Msg != "you own this guild" {
		t.Fatalf("expected error notice, got %+v", f.rec.Notices)
	}

	f.emit(proto.EventLeaveGuild, `{}`)
	if f.tr.CountType(proto.RequestGetGuilds) != 1 {
		t.Fatalf("successful leave must re-request guilds, sent %v", f.tr.Types())
	}
}

func TestJoinAndCreateGuildCloseDialogOnce(t *testing.T) {
	f := newFixture(t, "tok")

	var dialogChanges int
	f.state.Subscribe(func(c state.Change) {
		if c.Has(state.ChangeDialogs) {
			dialogChanges++
		}
	})

	f.state.SetGuildDialog(true)
	f.emit(proto.EventJoinGuild, `{}`)
	f.emit(proto.EventCreateGuild, `{}`)

	if f.state.GuildDialogOpen() {
		t.Fatal("dialog still open")
	}
	if dialogChanges != 2 {
		t.Fatalf("expected open+close only, got %d dialog changes", dialogChanges)
	}
	if f.tr.CountType(proto.RequestGetGuilds) != 2 {
		t.Fatalf("expected two guild refreshes, got %v", f.tr.Types())
	}

	f.emit(proto.EventJoinGuild, `{"message":"invalid invite"}`)
	if f.tr.CountType(proto.RequestGetGuilds) != 2 {
		t.Fatal("failed join refreshed guilds")
	}
	if f.rec.Count("error") != 1 {
		t.Fatalf("failed join not surfaced: %+v", f.rec.Notices)
	}
}

func TestUpdateGuildName(t *testing.T) {
	f := newFixture(t, "tok")
	f.emit(proto.EventGetGuilds, `{"guilds":{"g1":{"guildname":"old"}}}`)
	f.state.SetGuildSettingsDialog(true)

	f.emit(proto.EventUpdateGuildName, `{"success":true,"guild":"g1","name":"new"}`)
	if g, _ := f.state.Guild("g1"); g.Name != "new" {
		t.Fatalf("guild not renamed: %+v", g)
	}
	if n, _ := f.rec.Last(); n.Msg != NoticeGuildName {
		t.Fatalf("unexpected notice %+v", n)
	}
	if f.state.Snapshot().GuildSettingsDialogOpen {
		t.Fatal("settings dialog not closed")
	}

	f.emit(proto.EventUpdateGuildName, `{"success":false,"guild":"g1","name":"newer"}`)
	if g, _ := f.state.Guild("g1"); g.Name != "new" {
		t.Fatal("failed rename applied")
	}
	if n, _ := f.rec.Last(); n.Level != "error" || n.Msg != NoticeSaveGuildError {
		t.Fatalf("unexpected notice %+v", n)
	}
}

func TestUpdateGuildPicture(t *testing.T) {
	f := newFixture(t, "tok")
	f.emit(proto.EventGetGuilds, `{"guilds":{"g1":{"guildname":"one","picture":"a.png"}}}`)

	f.emit(proto.EventUpdateGuildPicture, `{"success":true,"guild":"g1","picture":"b.png"}`)
	if g, _ := f.state.Guild("g1"); g.Picture != "b.png" {
		t.Fatalf("picture not updated: %+v", g)
	}

	f.emit(proto.EventUpdateGuildPicture, `{"success":true,"guild":"g1"}`)
	if n, _ := f.rec.Last(); n.Level != "error" {
		t.Fatalf("missing picture should surface an error, got %+v", n)
	}
}

func TestInvites(t *testing.T) {
	f := newFixture(t, "tok")
	f.state.SelectGuild("g1")

	f.emit(proto.EventGetInvites, `{"guild":"g1","invites":{"abc":2,"def":0}}`)
	f.emit(proto.EventCreateInvite, `{"invite":"ghi"}`)
	f.emit(proto.EventDeleteInvite, `{"invite":"abc"}`)
	f.emit(proto.EventCreateInvite, `{"invite":42}`)
	f.emit(proto.EventGetInvites, `{"guild":"g1","invites":{"bad":"x"}}`)
	f.emit(proto.EventGetInvites, `{"guild":"g9","invites":{}}`)

	inv := f.state.Snapshot().Invites
	if len(inv) != 2 || inv["def"] != 0 || inv["ghi"] != 0 {
		t.Fatalf("unexpected invites %+v", inv)
	}
}

func TestProfileEvents(t *testing.T) {
	f := newFixture(t, "tok")

	f.emit(proto.EventGetUser, `{"userid":"u1","username":"alice","avatar":"a.png"}`)
	f.emit(proto.EventAvatarUpdate, `{"userid":"u1","avatar":"b.png"}`)
	f.emit(proto.EventUsernameUpdate, `{"userid":"u1","username":"alicia"}`)
	f.emit(proto.EventUsernameUpdate, `{"userid":"u1"}`)
	f.emit(proto.EventGetSelf, `{"username":"me","avatar":"me.png"}`)

	snap := f.state.Snapshot()
	if u := snap.Users["u1"]; u.Username != "alicia" || u.Avatar != "b.png" {
		t.Fatalf("unexpected user %+v", u)
	}
	if snap.Self.Username != "me" || snap.Self.Avatar != "me.png" {
		t.Fatalf("unexpected self %+v", snap.Self)
	}
}

func TestErrorEventSurfaces(t *testing.T) {
	f := newFixture(t, "tok")
	f.emit(proto.EventError, `{"message":"rate limited"}`)
	f.emit(proto.EventError, `{"message":5}`)

	if f.rec.Count("error") != 1 {
		t.Fatalf("expected one error notice, got %+v", f.rec.Notices)
	}
}

func TestCloseNotifiesOncePerDisconnect(t *testing.T) {
	f := newFixture(t, "tok")
	f.state.SetConnected(true)

	f.emit(proto.EventClose, ``)
	f.emit(proto.EventClose, ``)
	if f.rec.Count("error") != 1 {
		t.Fatalf("expected one lost-connection notice, got %+v", f.rec.Notices)
	}
	if f.state.Connected() {
		t.Fatal("connected flag not cleared")
	}

	f.emit(proto.EventOpen, ``)
	if n, _ := f.rec.Last(); n.Msg != NoticeReconnected {
		t.Fatalf("expected reconnect notice, got %+v", n)
	}
	if !f.state.Connected() {
		t.Fatal("connected flag not set")
	}

	f.emit(proto.EventClose, ``)
	if f.rec.Count("error") != 2 {
		t.Fatal("close after reopen must notify again")
	}
}

func TestOpenRehydratesOnlyWithToken(t *testing.T) {
	f := newFixture(t, "tok")
	f.emit(proto.EventOpen, ``)
	if f.tr.CountType(proto.RequestGetGuilds) != 1 || f.tr.CountType(proto.RequestGetSelf) != 1 {
		t.Fatalf("expected guild and self rehydration, got %v", f.tr.Types())
	}
	if f.rec.Count("success") != 0 {
		t.Fatal("first open is not a reconnect")
	}

	anon := newFixture(t, "")
	anon.emit(proto.EventOpen, ``)
	if len(anon.tr.Sent) != 0 {
		t.Fatalf("rehydrated without a token: %v", anon.tr.Types())
	}
}

func TestDeauthIsTerminal(t *testing.T) {
	f := newFixture(t, "tok")
	f.state.SelectGuild("g1")
	f.state.SelectChannel("c1")

	f.emit(proto.EventDeauth, `{}`)
	if f.rec.Redirects != 1 {
		t.Fatalf("expected one redirect, got %d", f.rec.Redirects)
	}
	if n, _ := f.rec.Last(); n.Level != "warning" || n.Msg != NoticeSessionExpired {
		t.Fatalf("unexpected notice %+v", n)
	}

	f.emit(proto.EventMessage, `{"userid":"u","createdat":1,"guild":"g1","message":"late"}`)
	f.emit(proto.EventGetGuilds, `{"guilds":{}}`)
	if len(f.state.Messages()) != 0 || f.state.Selection().Guild != "g1" {
		t.Fatal("state mutated after deauth")
	}
	if err := f.dispatch.GetGuilds(); err == nil {
		t.Fatal("dispatch after deauth must be a no-op")
	}

	f.emit(proto.EventDeauth, `{}`)
	if f.rec.Redirects != 2 {
		t.Fatalf("each deauth must redirect once, got %d", f.rec.Redirects)
	}
}

func TestErrorAnsweringFetchKeepsRepliesAligned(t *testing.T) {
	f := newFixture(t, "tok")

	f.state.SelectGuild("g1")
	_ = f.dispatch.GetChannels("g1")
	f.emit(proto.EventError, `{"message":"guild not found"}`)

	f.state.SelectGuild("g2")
	_ = f.dispatch.GetChannels("g2")
	f.emit(proto.EventGetChannels, `{"channels":{"c1":"general"}}`)

	ch := f.state.Channels()
	if len(ch) != 1 || ch["c1"] != "general" {
		t.Fatalf("reply for the selected guild was discarded: %+v", ch)
	}
	if n := f.dispatch.Outstanding(proto.EventGetChannels); n != 0 {
		t.Fatalf("expected no outstanding channel fetches, got %d", n)
	}
}

func TestErrorAnsweringMessagesFetch(t *testing.T) {
	f := newFixture(t, "tok")
	f.selectChannel(t, "g1", "c1")
	f.emit(proto.EventError, `{"message":"no access"}`)

	f.state.SelectChannel("c2")
	_ = f.dispatch.GetMessages("g1", "c2")
	f.emit(proto.EventGetMessages, `{"messages":[{"userid":"u","createdat":1,"guild":"g1","message":"hello"}]}`)

	if msgs := f.state.Messages(); len(msgs) != 1 || msgs[0].Message != "hello" {
		t.Fatalf("reply for the selected channel was discarded: %+v", msgs)
	}
}

func TestUncorrelatedRepliesRefetchLiveSelection(t *testing.T) {
	f := newFixture(t, "tok")
	f.state.SelectGuild("g1")
	f.state.SelectChannel("c1")

	f.emit(proto.EventGetChannels, `{"channels":{"x":"unknown"}}`)
	f.emit(proto.EventGetMessages, `{"messages":[]}`)

	if len(f.state.Channels()) != 0 {
		t.Fatal("uncorrelated channels reply was applied")
	}
	if f.tr.CountType(proto.RequestGetChannels) != 1 || f.tr.CountType(proto.RequestGetMessages) != 1 {
		t.Fatalf("expected one refetch of each kind, got %v", f.tr.Types())
	}

	f.emit(proto.EventGetChannels, `{"channels":{"c1":"general"}}`)
	if f.state.Channels()["c1"] != "general" {
		t.Fatalf("refetched reply not applied: %+v", f.state.Channels())
	}
}
