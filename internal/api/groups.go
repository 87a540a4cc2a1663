// ABOUTME: Group CRUD endpoints with ownership authorization
// ABOUTME: Paginated listing, card replacement and owner-gated mutations

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kartos-app/kartos/internal/auth"
	"github.com/kartos-app/kartos/internal/store"
)

// ownershipDeniedMessage is the fixed 403 body for group mutations; it never
// varies with the group or the caller.
const ownershipDeniedMessage = "you may only modify groups you created"

// groupSummary is the JSON shape for group listings and mutations.
type groupSummary struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	OwnerID     *string `json:"ownerId"`
	CardsCount  int     `json:"cardsCount"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// groupDetail is groupSummary plus the ordered card list.
type groupDetail struct {
	groupSummary
	Cards []cardResponse `json:"cards"`
}

// cardResponse is the JSON shape for a card.
type cardResponse struct {
	ID         int64   `json:"id"`
	GroupID    int64   `json:"groupId"`
	Term       string  `json:"term"`
	Definition string  `json:"definition"`
	Example    *string `json:"example"`
	Image      *string `json:"image"`
	CreatedAt  string  `json:"createdAt"`
}

// listGroupsResponse is the JSON response for GET /groups.
type listGroupsResponse struct {
	Data       []groupSummary `json:"data"`
	Pagination pagination     `json:"pagination"`
}

// createGroupRequest is the JSON request body for POST /groups.
type createGroupRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// updateGroupRequest is the JSON request body for PUT /groups/{id}.
// Nil fields are left unchanged.
type updateGroupRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// cardPayload is one card in a PUT /groups/{id}/cards request. Translation is
// the original client's field name for Definition; either is accepted.
type cardPayload struct {
	Term        string  `json:"term"`
	Translation string  `json:"translation"`
	Definition  string  `json:"definition"`
	Example     *string `json:"example"`
	Image       *string `json:"image"`
}

// replaceCardsRequest is the JSON request body for PUT /groups/{id}/cards.
type replaceCardsRequest struct {
	Cards *[]cardPayload `json:"cards"`
}

// handleListGroups handles GET /groups requests.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	params := store.ListGroupsParams{Page: page, PageSize: pageSize}

	// In owned visibility an authenticated admin sees only their groups.
	if s.visibility == "owned" {
		if identity := auth.FromContext(r.Context()); identity != nil {
			params.OwnerID = &identity.ID
		}
	}

	groups, total, err := s.store.ListGroups(r.Context(), params)
	if err != nil {
		s.logger.Error("failed to list groups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch groups")
		return
	}

	data := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		data = append(data, serializeGroupSummary(g))
	}

	writeJSON(w, http.StatusOK, listGroupsResponse{
		Data:       data,
		Pagination: paginationFor(total, page, pageSize),
	})
}

// handleGetGroup handles GET /groups/{id} requests.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid group id")
	if !ok {
		return
	}

	group, err := s.store.GetGroup(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch group", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch group")
		return
	}

	writeJSON(w, http.StatusOK, serializeGroupDetail(group))
}

// handleCreateGroup handles POST /groups requests. The authenticated identity
// becomes the group's owner.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustFromContext(r.Context())

	var req createGroupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "group title is required")
		return
	}

	group := &store.Group{
		Title:       title,
		Description: normalizeOptional(req.Description),
		OwnerID:     &identity.ID,
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		s.logger.Error("failed to create group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create group")
		return
	}

	writeJSON(w, http.StatusCreated, serializeGroupSummary(group))
}

// handleUpdateGroup handles PUT /groups/{id} requests.
func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid group id")
	if !ok {
		return
	}

	group, ok := s.requireGroupOwner(w, r, id)
	if !ok {
		return
	}

	var req updateGroupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "group title cannot be empty")
			return
		}
		group.Title = title
	}
	if req.Description != nil {
		group.Description = normalizeOptional(req.Description)
	}

	if err := s.store.UpdateGroup(r.Context(), group); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		s.logger.Error("failed to update group", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update group")
		return
	}

	writeJSON(w, http.StatusOK, serializeGroupSummary(group))
}

// handleReplaceCards handles PUT /groups/{id}/cards requests, replacing the
// group's entire card list atomically.
func (s *Server) handleReplaceCards(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid group id")
	if !ok {
		return
	}

	if _, ok := s.requireGroupOwner(w, r, id); !ok {
		return
	}

	var req replaceCardsRequest
	if err := decodeBody(r, &req); err != nil || req.Cards == nil {
		writeError(w, http.StatusBadRequest, "cards payload must be an array")
		return
	}

	cards, err := normalizeCards(*req.Cards)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	group, err := s.store.ReplaceGroupCards(r.Context(), id, cards)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to replace cards", "group_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update cards")
		return
	}

	writeJSON(w, http.StatusOK, serializeGroupDetail(group))
}

// handleDeleteGroup handles DELETE /groups/{id} requests.
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid group id")
	if !ok {
		return
	}

	if _, ok := s.requireGroupOwner(w, r, id); !ok {
		return
	}

	if err := s.store.DeleteGroup(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		s.logger.Error("failed to delete group", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete group")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// requireGroupOwner loads the group and enforces that the authenticated
// identity owns it. An absent group is 404; a group owned by nobody or by
// someone else is 403 with a fixed message.
func (s *Server) requireGroupOwner(w http.ResponseWriter, r *http.Request, id int64) (*store.Group, bool) {
	identity := auth.MustFromContext(r.Context())

	group, err := s.store.GetGroup(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "group not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("failed to fetch group", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch group")
		return nil, false
	}

	if group.OwnerID == nil || *group.OwnerID != identity.ID {
		writeError(w, http.StatusForbidden, ownershipDeniedMessage)
		return nil, false
	}

	return group, true
}

// normalizeCards validates and normalizes the card payloads, reporting the
// first invalid card by its 1-based position.
func normalizeCards(payloads []cardPayload) ([]*store.Card, error) {
	cards := make([]*store.Card, 0, len(payloads))
	for i, p := range payloads {
		term := strings.TrimSpace(p.Term)
		if term == "" {
			return nil, fmt.Errorf("card at position %d is missing a term", i+1)
		}

		definition := strings.TrimSpace(p.Translation)
		if definition == "" {
			definition = strings.TrimSpace(p.Definition)
		}
		if definition == "" {
			return nil, fmt.Errorf("card at position %d is missing a translation", i+1)
		}

		cards = append(cards, &store.Card{
			Term:       term,
			Definition: definition,
			Example:    normalizeOptional(p.Example),
			Image:      normalizeOptional(p.Image),
		})
	}
	return cards, nil
}

// normalizeOptional trims an optional string field, collapsing empty to nil.
func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// pathID parses the {id} path segment, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, message string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}

func serializeGroupSummary(g *store.Group) groupSummary {
	return groupSummary{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		OwnerID:     g.OwnerID,
		CardsCount:  g.CardsCount,
		CreatedAt:   formatTime(g.CreatedAt),
		UpdatedAt:   formatTime(g.UpdatedAt),
	}
}

func serializeGroupDetail(g *store.Group) groupDetail {
	detail := groupDetail{groupSummary: serializeGroupSummary(g)}
	detail.CardsCount = len(g.Cards)
	detail.Cards = make([]cardResponse, 0, len(g.Cards))
	for _, c := range g.Cards {
		detail.Cards = append(detail.Cards, serializeCard(c))
	}
	return detail
}

func serializeCard(c *store.Card) cardResponse {
	return cardResponse{
		ID:         c.ID,
		GroupID:    c.GroupID,
		Term:       c.Term,
		Definition: c.Definition,
		Example:    c.Example,
		Image:      c.Image,
		CreatedAt:  formatTime(c.CreatedAt),
	}
}
