// ABOUTME: Public card read endpoints
// ABOUTME: Paginated listing joined with group summaries and single lookup

package api

import (
	"errors"
	"net/http"

	"github.com/kartos-app/kartos/internal/store"
)

// cardGroupRef is the group summary attached to listed cards.
type cardGroupRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// cardWithGroup is a card joined with its group summary.
type cardWithGroup struct {
	cardResponse
	Group cardGroupRef `json:"group"`
}

// listCardsResponse is the JSON response for GET /cards.
type listCardsResponse struct {
	Data       []cardWithGroup `json:"data"`
	Pagination pagination      `json:"pagination"`
}

// handleListCards handles GET /cards requests.
func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	cards, total, err := s.store.ListCards(r.Context(), store.ListCardsParams{
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		s.logger.Error("failed to list cards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch cards")
		return
	}

	data := make([]cardWithGroup, 0, len(cards))
	for _, c := range cards {
		data = append(data, serializeCardWithGroup(c))
	}

	writeJSON(w, http.StatusOK, listCardsResponse{
		Data:       data,
		Pagination: paginationFor(total, page, pageSize),
	})
}

// handleGetCard handles GET /cards/{id} requests.
func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid card id")
	if !ok {
		return
	}

	card, err := s.store.GetCard(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch card", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch card")
		return
	}

	writeJSON(w, http.StatusOK, serializeCardWithGroup(card))
}

func serializeCardWithGroup(c *store.CardWithGroup) cardWithGroup {
	return cardWithGroup{
		cardResponse: serializeCard(&c.Card),
		Group:        cardGroupRef{ID: c.Group.ID, Title: c.Group.Title},
	}
}
