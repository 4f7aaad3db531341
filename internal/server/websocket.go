/*
 * This file is part of Leining App (https://github.com/binyominzeev/leining-app).
 * Copyright (C) 2025 Binyomin Zeev
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/binyominzeev/leining-app/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Practice sessions run from local dev frontends on other ports.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is a JSON control message from the client
type wsMessage struct {
	Type          string `json:"type"`
	ReferenceText string `json:"reference_text"`
	MarkerWord    string `json:"marker_word"`
	VerseID       string `json:"verse_id"`
	IgnoreNikud   *bool  `json:"ignore_nikud"`
}

// wsSession holds the per-connection practice state
type wsSession struct {
	referenceText string
	markerWord    string
	verseID       string
	ignoreNikud   bool
	audioBuffer   []byte
}

// handleAudioWebSocket streams audio over a WebSocket connection.
//
// The client sends binary WAV chunks and JSON control messages:
// "config" sets the reference verse and marker word, "transcribe" runs the
// pipeline on the buffered audio, "clear" drops the buffer. The server
// replies with config_ack, audio_received, transcription, buffer_cleared
// and error messages.
func (s *Server) handleAudioWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.LogError(err, "WebSocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	logging.LogWebSocketEvent("connected",
		zap.String("remote_addr", r.RemoteAddr),
	)

	session := &wsSession{
		verseID:     "default",
		ignoreNikud: true,
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogWarn("WebSocket read error", zap.Error(err))
			}
			logging.LogWebSocketEvent("disconnected",
				zap.String("remote_addr", r.RemoteAddr),
			)
			return
		}

		switch msgType {
		case websocket.TextMessage:
			s.handleControlMessage(conn, session, data)
		case websocket.BinaryMessage:
			session.audioBuffer = append(session.audioBuffer, data...)
			sendWS(conn, map[string]interface{}{
				"type":        "audio_received",
				"buffer_size": len(session.audioBuffer),
			})
		}
	}
}

// handleControlMessage dispatches a JSON control message from the client
func (s *Server) handleControlMessage(conn *websocket.Conn, session *wsSession, data []byte) {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		sendWSError(conn, "Invalid JSON format")
		return
	}

	switch msg.Type {
	case "config":
		session.referenceText = msg.ReferenceText
		session.markerWord = msg.MarkerWord
		if msg.VerseID != "" {
			session.verseID = msg.VerseID
		}
		if msg.IgnoreNikud != nil {
			session.ignoreNikud = *msg.IgnoreNikud
		}
		logging.LogWebSocketEvent("config",
			zap.String("verse_id", session.verseID),
			zap.String("marker_word", session.markerWord),
		)
		sendWS(conn, map[string]interface{}{
			"type":           "config_ack",
			"message":        "Configuration updated",
			"reference_text": session.referenceText,
			"marker_word":    session.markerWord,
		})

	case "transcribe":
		s.transcribeSession(conn, session)

	case "clear":
		session.audioBuffer = nil
		sendWS(conn, map[string]interface{}{
			"type":    "buffer_cleared",
			"message": "Audio buffer cleared",
		})

	default:
		sendWSError(conn, "Unknown message type: "+msg.Type)
	}
}

// transcribeSession runs the pipeline on the buffered audio and reports the
// result to the client. The buffer is consumed either way.
func (s *Server) transcribeSession(conn *websocket.Conn, session *wsSession) {
	if !s.engineLoaded() {
		sendWSError(conn, "Whisper model not loaded")
		return
	}
	if len(session.audioBuffer) == 0 {
		sendWSError(conn, "No audio data to transcribe")
		return
	}

	wavData := session.audioBuffer
	session.audioBuffer = nil

	attempt, err := s.runPipeline(wavData, session.verseID, session.referenceText, session.markerWord, session.ignoreNikud)
	if err != nil {
		sendWSError(conn, err.Error())
		return
	}

	sendWS(conn, map[string]interface{}{
		"type":           "transcription",
		"transcription":  attempt.Transcription,
		"exact_match":    attempt.ExactMatch,
		"similarity":     attempt.Similarity,
		"marker_reached": attempt.MarkerReached,
		"attempt_uuid":   attempt.UUID,
	})
}

func sendWS(conn *websocket.Conn, payload map[string]interface{}) {
	if err := conn.WriteJSON(payload); err != nil {
		logging.LogWarn("Failed to write WebSocket message", zap.Error(err))
	}
}

func sendWSError(conn *websocket.Conn, message string) {
	sendWS(conn, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
