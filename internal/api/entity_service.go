package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eyalbz/wacal/internal/store"
)

// EntityService serves the entity admin endpoints: listing the known
// chats, flipping inclusion, assigning company names, and bulk
// ingestion of counterparts discovered from the source.
type EntityService struct {
	db *store.DB
}

// NewEntityService creates the entity service backed by the store.
func NewEntityService(db *store.DB) *EntityService {
	return &EntityService{db: db}
}

// entityView is the JSON shape of one entity.
type entityView struct {
	ChatID      string `json:"chat_id"`
	Kind        string `json:"kind"`
	Phone       string `json:"phone,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	PushName    string `json:"push_name,omitempty"`
	Subject     string `json:"subject,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	Included    bool   `json:"included"`
}

func toEntityView(e *store.Entity) entityView {
	return entityView{
		ChatID:      e.ChatID,
		Kind:        string(e.Kind),
		Phone:       e.Phone,
		DisplayName: e.DisplayName,
		PushName:    e.PushName,
		Subject:     e.Subject,
		CompanyName: e.CompanyName,
		Included:    e.Included,
	}
}

// List handles GET /v1/entities.
func (s *EntityService) List(c *gin.Context) {
	entities, err := s.db.ListEntities()
	if err != nil {
		internalError(c, err)
		return
	}
	views := make([]entityView, 0, len(entities))
	for i := range entities {
		views = append(views, toEntityView(&entities[i]))
	}
	c.JSON(http.StatusOK, gin.H{"entities": views})
}

type patchEntityRequest struct {
	Included    *bool   `json:"included"`
	CompanyName *string `json:"company_name"`
}

// Patch handles PATCH /v1/entities/:chatID. Only the fields present in
// the body change; the upsert path never touches these admin fields.
func (s *EntityService) Patch(c *gin.Context) {
	chatID := c.Param("chatID")

	var req patchEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid patch body")
		return
	}
	if req.Included == nil && req.CompanyName == nil {
		fail(c, http.StatusBadRequest, "nothing to change")
		return
	}

	if req.Included != nil {
		found, err := s.db.SetIncluded(chatID, *req.Included)
		if err != nil {
			internalError(c, err)
			return
		}
		if !found {
			fail(c, http.StatusNotFound, "unknown chat "+chatID)
			return
		}
	}
	if req.CompanyName != nil {
		found, err := s.db.SetCompanyName(chatID, *req.CompanyName)
		if err != nil {
			internalError(c, err)
			return
		}
		if !found {
			fail(c, http.StatusNotFound, "unknown chat "+chatID)
			return
		}
	}

	e, err := s.db.GetEntity(chatID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntityView(e))
}

type bulkEntitiesRequest struct {
	Entities []entityView `json:"entities" binding:"required"`
}

// BulkPut handles POST /v1/entities: upserts counterparts discovered
// from the source. Inclusion flags and company names on existing rows
// survive the upsert.
func (s *EntityService) BulkPut(c *gin.Context) {
	var req bulkEntitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid entities body")
		return
	}

	batch := make([]store.Entity, 0, len(req.Entities))
	for _, v := range req.Entities {
		if v.ChatID == "" {
			fail(c, http.StatusBadRequest, "entity without chat_id")
			return
		}
		kind := store.EntityKind(v.Kind)
		if kind != store.KindContact && kind != store.KindGroup {
			fail(c, http.StatusBadRequest, "unknown entity kind "+v.Kind)
			return
		}
		batch = append(batch, store.Entity{
			ChatID:      v.ChatID,
			Kind:        kind,
			Phone:       v.Phone,
			DisplayName: v.DisplayName,
			PushName:    v.PushName,
			Subject:     v.Subject,
		})
	}

	if err := s.db.BulkUpsertEntities(batch); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upserted": len(batch)})
}
