package internal

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// listConversations returns the caller's threads, newest activity first.
// Clients poll this endpoint; there is no push channel.
func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	if !s.requireModuleAccess(w, r, "chat", false) {
		return
	}
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), `
		SELECT id, org_id, title, participant_ids, created_by, last_message_at, created_at
		FROM conversations
		WHERE org_id = $1 AND $2 = ANY(participant_ids)
		ORDER BY last_message_at DESC NULLS LAST, created_at DESC`, orgID, userID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		var participants pq.Int64Array
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Title, &participants, &c.CreatedBy,
			&c.LastMessageAt, &c.CreatedAt); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		c.ParticipantIDs = participants
		conversations = append(conversations, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conversations)
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	if !s.requireModuleAccess(w, r, "chat", true) {
		return
	}
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	var in models.CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	// The creator is always a participant
	participants := in.ParticipantIDs
	found := false
	for _, p := range participants {
		if p == userID {
			found = true
			break
		}
	}
	if !found {
		participants = append(participants, userID)
	}

	var c models.Conversation
	var scanned pq.Int64Array
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO conversations (org_id, title, participant_ids, created_by)
		VALUES ($1,$2,$3,$4)
		RETURNING id, org_id, title, participant_ids, created_by, last_message_at, created_at`,
		orgID, nullIfEmpty(in.Title), pq.Array(participants), userID).Scan(
		&c.ID, &c.OrgID, &c.Title, &scanned, &c.CreatedBy, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	c.ParticipantIDs = scanned

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

// requireParticipant loads a conversation the caller belongs to.
func (s *Server) requireParticipant(r *http.Request, conversationID string) (int64, error) {
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	var id int64
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		SELECT id FROM conversations
		WHERE id = $1 AND org_id = $2 AND $3 = ANY(participant_ids)`,
		conversationID, orgID, userID).Scan(&id)
	return id, err
}

// listMessages returns a conversation's messages in insert order. The since
// parameter is the polling cursor: only messages created after it.
func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	if !s.requireModuleAccess(w, r, "chat", false) {
		return
	}
	conversationID := chi.URLParam(r, "id")

	if _, err := s.requireParticipant(r, conversationID); err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	sqlStr := `
		SELECT id, conversation_id, sender_id, body, read_by, created_at
		FROM messages
		WHERE conversation_id = $1`
	args := []interface{}{conversationID}

	if since := strings.TrimSpace(r.URL.Query().Get("since")); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			http.Error(w, "since must be RFC3339", 400)
			return
		}
		sqlStr += " AND created_at > $2"
		args = append(args, t)
	}
	sqlStr += " ORDER BY created_at ASC"

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var readBy pq.Int64Array
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &readBy, &m.CreatedAt); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		m.ReadBy = readBy
		messages = append(messages, m)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	if !s.requireModuleAccess(w, r, "chat", true) {
		return
	}
	conversationID := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	convID, err := s.requireParticipant(r, conversationID)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	var in models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	var m models.Message
	var readBy pq.Int64Array
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO messages (id, conversation_id, sender_id, body, read_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, conversation_id, sender_id, body, read_by, created_at`,
		uuid.NewString(), convID, userID, in.Body, pq.Array([]int64{userID})).Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &readBy, &m.CreatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	m.ReadBy = readBy

	if _, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		`UPDATE conversations SET last_message_at = now() WHERE id = $1`, convID); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(m)
}

// markMessageRead records the caller in the message's read set. Fire and
// forget from the client's side: repeated calls are harmless, visible
// messages always get 204.
func (s *Server) markMessageRead(w http.ResponseWriter, r *http.Request) {
	if !s.requireModuleAccess(w, r, "chat", false) {
		return
	}
	messageID := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	if _, err := uuid.Parse(messageID); err != nil {
		http.Error(w, "invalid message ID", 400)
		return
	}

	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(), `
		UPDATE messages m
		SET read_by = array_append(m.read_by, $1)
		FROM conversations c
		WHERE m.id = $2 AND c.id = m.conversation_id AND c.org_id = $3
		  AND $1 = ANY(c.participant_ids) AND NOT ($1 = ANY(m.read_by))`,
		userID, messageID, orgID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	n, _ := res.RowsAffected()
	if n == 0 {
		// Already read, or not visible; either way check visibility for the 404
		var visible bool
		err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
			SELECT true FROM messages m JOIN conversations c ON c.id = m.conversation_id
			WHERE m.id = $1 AND c.org_id = $2 AND $3 = ANY(c.participant_ids)`,
			messageID, orgID, userID).Scan(&visible)
		if err == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
