package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		raw     string
		expType string
		expErr  error
		check   func(t *testing.T, payload any)
	}{
		"join game": {
			raw:     `{"type":"join_game","data":{"username":"Hero","characterData":{"str":12,"int":8,"agi":10,"hp":100,"max_hp":100}}}`,
			expType: TypeJoinGame,
			check: func(t *testing.T, payload any) {
				jg := payload.(*JoinGame)
				testutil.AssertEqual(t, "username", jg.Username, "Hero")
				testutil.AssertEqual(t, "strength", jg.Character.Strength, 12)
				testutil.AssertEqual(t, "max hp", jg.Character.MaxHP, 100)
			},
		},
		"player move": {
			raw:     `{"type":"player_move","data":{"fromLocation":"starting-town","toLocation":"forest"}}`,
			expType: TypePlayerMove,
			check: func(t *testing.T, payload any) {
				pm := payload.(*PlayerMove)
				testutil.AssertEqual(t, "from", pm.FromLocation, "starting-town")
				testutil.AssertEqual(t, "to", pm.ToLocation, "forest")
			},
		},
		"chat message": {
			raw:     `{"type":"chat_message","data":{"message":"hi all","channel":"global"}}`,
			expType: TypeChatMessage,
			check: func(t *testing.T, payload any) {
				cm := payload.(*ChatMessage)
				testutil.AssertEqual(t, "message", cm.Message, "hi all")
				testutil.AssertEqual(t, "channel", cm.Channel, "global")
			},
		},
		"battle action": {
			raw:     `{"type":"battle_action","data":{"battleId":"b-1","action":"attack"}}`,
			expType: TypeBattleAction,
			check: func(t *testing.T, payload any) {
				ba := payload.(*BattleAction)
				testutil.AssertEqual(t, "battle id", ba.BattleId, "b-1")
				testutil.AssertEqual(t, "action", ba.Action, "attack")
			},
		},
		"save game keeps payload opaque": {
			raw:     `{"type":"save_game","data":{"payload":{"player":{"level":3,"gold":120}}}}`,
			expType: TypeSaveGame,
			check: func(t *testing.T, payload any) {
				sg := payload.(*SaveGame)
				testutil.AssertEqual(t, "payload", string(sg.Payload), `{"player":{"level":3,"gold":120}}`)
			},
		},
		"missing data": {
			raw:     `{"type":"start_battle"}`,
			expType: TypeStartBattle,
			check: func(t *testing.T, payload any) {
				sb := payload.(*StartBattle)
				testutil.AssertEqual(t, "enemy type", sb.EnemyType, "")
			},
		},
		"unknown type": {
			raw:    `{"type":"cast_vote","data":{}}`,
			expErr: ErrInvalidRequest,
		},
		"malformed json": {
			raw:    `{"type":"join_game","data":`,
			expErr: ErrInvalidRequest,
		},
		"payload type mismatch": {
			raw:    `{"type":"player_move","data":{"fromLocation":7}}`,
			expErr: ErrInvalidRequest,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			eventType, payload, err := Decode([]byte(tt.raw))
			if !errors.Is(err, tt.expErr) {
				t.Fatalf("expected error %v, got %v", tt.expErr, err)
			}
			if tt.expErr != nil {
				return
			}

			testutil.AssertEqual(t, "event type", eventType, tt.expType)
			if tt.check != nil {
				tt.check(t, payload)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(TypePlayerJoined, PlayerJoined{Username: "Hero", Location: "starting-town"})
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshaling envelope: %v", err)
	}
	testutil.AssertEqual(t, "event type", env.Type, TypePlayerJoined)

	var pj PlayerJoined
	if err := json.Unmarshal(env.Data, &pj); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	testutil.AssertEqual(t, "username", pj.Username, "Hero")
	testutil.AssertEqual(t, "location", pj.Location, "starting-town")
}
