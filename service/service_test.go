package service

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nathoo/spotcore/engine"
	"github.com/nathoo/spotcore/engine/resolve"
	"github.com/nathoo/spotcore/types"
)

func testPhrases() types.PhraseDefs {
	return types.PhraseDefs{
		Default: types.PhraseTable{
			Phrases: map[string][]string{
				engine.KeyRoundStart:      {"Ronde {round}."},
				engine.KeyQueryFirst:      {"Wie staat er op plek 1?"},
				engine.KeyQueryNext:       {"En op plek {position}?"},
				engine.KeyQueryRepeat:     {"Wie staat er dan op plek {position}?"},
				engine.KeyAckSame:         {"Ja, {description} staat ook op plek {position}."},
				engine.KeyAckDifferent:    {"Bij mij staat {description} op plek {position}."},
				engine.KeyConfirmQuestion: {"Bedoel je {description}?"},
				engine.KeyConfirmRetry:    {"Oke, we proberen het opnieuw."},
				engine.KeyConfirmUnclear:  {"Ja of nee?"},
				engine.KeyConfirmYes:      {"ja"},
				engine.KeyConfirmNo:       {"nee"},
				engine.KeyRepairNoMatch:   {"Die ken ik niet."},
				engine.KeyRepairNegative:  {"Wie dan wel?"},
				engine.KeyRepairPrevious:  {"Die hadden we al."},
				engine.KeyRepairMultiple:  {"Bedoel je {detail}?"},
				engine.KeyRepairSkip:      {"We slaan deze over."},
				engine.KeyRoundFinish:     {"Einde van de ronde."},
				engine.KeyQuestionnaire:   {"Vul de vragenlijst in."},
				engine.KeyGoodbye:         {"Goodbye!"},
			},
		},
	}
}

func testScene() types.SceneDef {
	return types.SceneDef{
		Characters: map[string]types.Character{
			"pirate": {ID: "pirate", Name: "piraat", Description: "de piraat"},
			"robot":  {ID: "robot", Name: "robot", Description: "de robot"},
			"clown":  {ID: "clown", Name: "clown", Description: "de clown"},
		},
		Rounds: []types.RoundDef{{Positions: []string{"pirate", "robot"}}},
	}
}

func factoryFor(t *testing.T, defs types.PhraseDefs) EngineFactory {
	storage := t.TempDir()
	return func(_ string, log *zap.Logger) (*engine.Engine, error) {
		cfg := engine.DefaultConfig()
		cfg.Rounds = 1
		cfg.MaxPosition = 2
		cfg.QuestionnaireRounds = nil
		cfg.EncouragementRate = 0
		cfg.PauseMarker = " | "
		cfg.StoragePath = storage
		scene := resolve.New(testScene(), resolve.DefaultOptions(), log)
		return engine.New(cfg, scene, defs, engine.WithLogger(log)), nil
	}
}

func startServer(t *testing.T, factory EngineFactory, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(factory, opts, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// outbound is either message kind the service sends.
type outbound struct {
	replyMessage
	Message string `json:"message"`
}

func receive(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func gameMsg() map[string]any {
	return map[string]any{
		"type":  "game",
		"event": map[string]any{"participant_id": "p1", "participant_name": "Sam", "interaction": "1"},
	}
}

func textMsg(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

func TestService_Conversation(t *testing.T) {
	_, ts := startServer(t, factoryFor(t, testPhrases()), Options{CommitTimeout: time.Minute})
	conn := dial(t, ts)

	send(t, conn, gameMsg())
	msg := receive(t, conn)
	assert.Equal(t, "reply", msg.Type)
	assert.Equal(t, "Ronde 1. | Wie staat er op plek 1?", msg.Text)
	assert.Equal(t, "REPLY", msg.Await)
	assert.Equal(t, "Disambiguation", msg.State)
	assert.Equal(t, 1, msg.Round)
	assert.Equal(t, 1, msg.Position)

	send(t, conn, textMsg("de piraat"))
	msg = receive(t, conn)
	assert.Equal(t, "Ja, de piraat staat ook op plek 1. | En op plek 2?", msg.Text)
	assert.Equal(t, 2, msg.Position)
	require.Len(t, msg.Annotations, 1)
	assert.Equal(t, "pirate", msg.Annotations[0].Selected)
	assert.Equal(t, types.StatusSuccessHigh, msg.Annotations[0].Status)

	send(t, conn, textMsg("de robot"))
	msg = receive(t, conn)
	assert.Equal(t, "Ja, de robot staat ook op plek 2. | Einde van de ronde. | Goodbye!", msg.Text)
	assert.Equal(t, "GAME", msg.Await)
	assert.Equal(t, "GameFinish", msg.State)
}

func TestService_CommitTimeout(t *testing.T) {
	_, ts := startServer(t, factoryFor(t, testPhrases()), Options{CommitTimeout: 50 * time.Millisecond})
	conn := dial(t, ts)

	send(t, conn, gameMsg())
	receive(t, conn)

	send(t, conn, textMsg("piraat met"))
	msg := receive(t, conn)
	assert.True(t, msg.Continuation)
	assert.Empty(t, msg.Text)
	assert.Equal(t, 1, msg.Position, "no advance while pending")

	// Nothing else arrives until the timer commits the continuation.
	msg = receive(t, conn)
	assert.False(t, msg.Continuation)
	assert.Equal(t, "Ja, de piraat staat ook op plek 1. | En op plek 2?", msg.Text)
	assert.Equal(t, 2, msg.Position)
}

func TestService_ContinuationExtendedBeforeTimeout(t *testing.T) {
	_, ts := startServer(t, factoryFor(t, testPhrases()), Options{CommitTimeout: time.Minute})
	conn := dial(t, ts)

	send(t, conn, gameMsg())
	receive(t, conn)

	send(t, conn, textMsg("piraat met"))
	require.True(t, receive(t, conn).Continuation)

	send(t, conn, map[string]any{"type": "commit"})
	msg := receive(t, conn)
	assert.False(t, msg.Continuation)
	assert.Contains(t, msg.Text, "de piraat")
}

func TestService_CommitWithoutPending(t *testing.T) {
	_, ts := startServer(t, factoryFor(t, testPhrases()), Options{})
	conn := dial(t, ts)

	send(t, conn, gameMsg())
	receive(t, conn)

	send(t, conn, map[string]any{"type": "commit"})
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, engine.ErrNothingPending.Error(), msg.Message)

	// The connection stays usable.
	send(t, conn, textMsg("piraat"))
	assert.Equal(t, "reply", receive(t, conn).Type)
}

func TestService_MicGating(t *testing.T) {
	_, ts := startServer(t, factoryFor(t, testPhrases()), Options{MicGating: true})
	conn := dial(t, ts)

	send(t, conn, gameMsg())
	receive(t, conn)

	send(t, conn, textMsg("piraat"))
	assert.Contains(t, receive(t, conn).Text, "de piraat")

	// Gated until the next mic message.
	send(t, conn, textMsg("clown"))
	send(t, conn, map[string]any{"type": "mic"})
	send(t, conn, textMsg("robot"))

	msg := receive(t, conn)
	assert.Contains(t, msg.Text, "de robot")
	assert.NotContains(t, msg.Text, "ken ik niet")
}

func TestService_BadMessages(t *testing.T) {
	_, ts := startServer(t, factoryFor(t, testPhrases()), Options{})
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "malformed")

	send(t, conn, map[string]any{"type": "dance"})
	msg = receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "unknown message type")

	send(t, conn, map[string]any{"type": "game"})
	msg = receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "without event")
}

func TestService_FatalErrorClosesConnection(t *testing.T) {
	defs := testPhrases()
	delete(defs.Default.Phrases, engine.KeyQueryFirst)
	_, ts := startServer(t, factoryFor(t, defs), Options{})
	conn := dial(t, ts)

	send(t, conn, gameMsg())
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, engine.KeyQueryFirst)

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}

func TestService_UnsafeParticipantIDClosesConnection(t *testing.T) {
	_, ts := startServer(t, factoryFor(t, testPhrases()), Options{})
	conn := dial(t, ts)

	send(t, conn, map[string]any{
		"type":  "game",
		"event": map[string]any{"participant_id": "/../../../escaped", "interaction": "1"},
	})
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Message, "invalid participant id")

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}

func TestService_FactoryError(t *testing.T) {
	failing := func(string, *zap.Logger) (*engine.Engine, error) {
		return nil, errors.New("content unavailable")
	}
	_, ts := startServer(t, failing, Options{})
	conn := dial(t, ts)

	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "content unavailable", msg.Message)
}

func TestService_HealthAndMetrics(t *testing.T) {
	_, ts := startServer(t, factoryFor(t, testPhrases()), Options{})
	conn := dial(t, ts)
	send(t, conn, gameMsg())
	receive(t, conn)
	send(t, conn, textMsg("piraat"))
	receive(t, conn)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	metrics := string(body)
	assert.Contains(t, metrics, `spotcore_connections_total{outcome="accepted"} 1`)
	assert.Contains(t, metrics, `spotcore_messages_total{type="text"} 1`)
	assert.Contains(t, metrics, `spotcore_disambiguations_total{status="SUCCESS_HIGH"} 1`)
	assert.Contains(t, metrics, "spotcore_active_connections 1")
}

func TestAwaitName(t *testing.T) {
	assert.Equal(t, "GAME", awaitName(types.InputGame))
	assert.Equal(t, "REPLY", awaitName(types.InputReply))
	assert.Equal(t, "", awaitName(types.InputNone))
}
