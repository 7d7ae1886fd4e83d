package models

import (
	"fmt"
	"strings"
)

const keyPrefix = "party:"

func GameKey(gameID string) string { return fmt.Sprintf("party:%s:game", gameID) }

func TeamKey(gameID, teamID string) string { return fmt.Sprintf("party:%s:team:%s", gameID, teamID) }

func PlayerKey(gameID, playerID string) string {
	return fmt.Sprintf("party:%s:player:%s", gameID, playerID)
}

func RoundKey(gameID, roundID string) string { return fmt.Sprintf("party:%s:round:%s", gameID, roundID) }

func RoundScoresKey(gameID, roundID string) string {
	return fmt.Sprintf("party:%s:scores:%s", gameID, roundID)
}

func GameScoresKey(gameID string) string { return fmt.Sprintf("party:%s:gamescores", gameID) }

func ChooserKey(gameID string) string { return fmt.Sprintf("party:%s:chooser", gameID) }

func RealtimeKey(gameID, questionID string) string {
	return fmt.Sprintf("party:%s:realtime:%s", gameID, questionID)
}

func TimerKey(gameID string) string { return fmt.Sprintf("party:%s:timer", gameID) }

func SoundsKey(gameID string) string { return fmt.Sprintf("party:%s:sounds", gameID) }

// QuestionKey pregunta base; cada partida tiene su propia copia inmutable.
func QuestionKey(gameID, questionID string) string {
	return fmt.Sprintf("party:%s:question:%s", gameID, questionID)
}

// GameIDFromKey extrae la partida de una clave party:{g}:...
func GameIDFromKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return "", false
	}
	gameID, _, ok := strings.Cut(rest, ":")
	if !ok || gameID == "" {
		return "", false
	}
	return gameID, true
}
