package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/diagram-service/internal/logger"
	"github.com/iliyamo/diagram-service/internal/metrics"
	"github.com/iliyamo/diagram-service/internal/model"
	"github.com/iliyamo/diagram-service/internal/queue"
	"github.com/iliyamo/diagram-service/internal/repository"
)

// DiagramStore is the persistence surface the diagram handlers need.
type DiagramStore interface {
	Create(ctx context.Context, in model.DiagramInput) (*model.Diagram, error)
	GetByID(ctx context.Context, id int64) (*model.Diagram, error)
	List(ctx context.Context, f repository.DiagramFilter) ([]*model.Diagram, error)
	Update(ctx context.Context, id int64, in model.DiagramInput) (*model.Diagram, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// EventPublisher receives an event after every committed write.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.DiagramEvent) error
}

// CacheInvalidator drops cached reads after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// DiagramHandler serves /api/diagrams.
type DiagramHandler struct {
	Store  DiagramStore
	Events EventPublisher   // optional
	Cache  CacheInvalidator // optional
}

// NewDiagramHandler constructs a DiagramHandler and panics if store is nil.
func NewDiagramHandler(store DiagramStore, events EventPublisher, cache CacheInvalidator) *DiagramHandler {
	if store == nil {
		panic("nil store passed to NewDiagramHandler")
	}
	return &DiagramHandler{Store: store, Events: events, Cache: cache}
}

// Create handles POST /api/diagrams.  name is required; every other column
// falls back to its default.  When the caller is authenticated and supplies
// no author, the token subject becomes the author.
func (h *DiagramHandler) Create(c echo.Context) error {
	var in model.DiagramInput
	if err := decodeJSON(c, &in); err != nil {
		return err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return invalid("Missing required fields: name")
	}
	if in.Author == nil {
		if sub := subject(c); sub != "" {
			in.Author = &sub
		}
	}

	d, err := h.Store.Create(c.Request().Context(), in)
	metrics.ObserveOp("create", err)
	if err != nil {
		return err
	}
	logger.L.Info("diagram created", "diagram_id", d.DiagramID, "name", d.Name)
	h.afterWrite(c, queue.DiagramCreated, d.DiagramID, d)

	return success(c, http.StatusCreated, echo.Map{
		"message": "Diagram created successfully",
		"diagram": d,
	})
}

// Read handles GET /api/diagrams.  With diagram_id it returns one diagram;
// otherwise it lists diagrams filtered by package_id and diagram_type.
func (h *DiagramHandler) Read(c echo.Context) error {
	ctx := c.Request().Context()

	id, single, err := queryInt64(c, "diagram_id")
	if err != nil {
		return err
	}
	if single {
		d, err := h.Store.GetByID(ctx, id)
		metrics.ObserveOp("read", err)
		if err != nil {
			return err
		}
		if d == nil {
			return &NotFoundError{ID: id}
		}
		return success(c, http.StatusOK, echo.Map{"diagram": d})
	}

	var f repository.DiagramFilter
	pkg, ok, err := queryInt64(c, "package_id")
	if err != nil {
		return err
	}
	if ok {
		f.PackageID = &pkg
	}
	if typ := strings.TrimSpace(c.QueryParam("diagram_type")); typ != "" {
		f.DiagramType = &typ
	}

	list, err := h.Store.List(ctx, f)
	metrics.ObserveOp("list", err)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{
		"count":    len(list),
		"diagrams": list,
	})
}

// Update handles PUT and PATCH /api/diagrams?diagram_id=N.  Only supplied
// fields change; an empty object just refreshes modifieddate.
func (h *DiagramHandler) Update(c echo.Context) error {
	id, err := requireDiagramID(c)
	if err != nil {
		return err
	}
	var in model.DiagramInput
	if err := decodeJSON(c, &in); err != nil {
		return err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return invalid("name must not be empty")
	}

	d, err := h.Store.Update(c.Request().Context(), id, in)
	metrics.ObserveOp("update", err)
	if err != nil {
		return err
	}
	if d == nil {
		return &NotFoundError{ID: id}
	}
	logger.L.Info("diagram updated", "diagram_id", id)
	h.afterWrite(c, queue.DiagramUpdated, id, d)

	return success(c, http.StatusOK, echo.Map{
		"message":   "Diagram updated successfully",
		"diagram":   d,
		"timestamp": Timestamp(d.ModifiedDate),
	})
}

// Delete handles DELETE /api/diagrams?diagram_id=N.
func (h *DiagramHandler) Delete(c echo.Context) error {
	id, err := requireDiagramID(c)
	if err != nil {
		return err
	}
	found, err := h.Store.Delete(c.Request().Context(), id)
	metrics.ObserveOp("delete", err)
	if err != nil {
		return err
	}
	if !found {
		return &NotFoundError{ID: id}
	}
	logger.L.Info("diagram deleted", "diagram_id", id)
	h.afterWrite(c, queue.DiagramDeleted, id, nil)

	return success(c, http.StatusOK, echo.Map{
		"message":            "Diagram deleted successfully",
		"deleted_diagram_id": id,
	})
}

// afterWrite flushes cached reads and publishes the lifecycle event.
// Neither failure affects the response.
func (h *DiagramHandler) afterWrite(c echo.Context, evType string, id int64, d *model.Diagram) {
	ctx := c.Request().Context()
	if h.Cache != nil {
		if err := h.Cache.Invalidate(ctx); err != nil {
			logger.L.Warn("cache invalidation failed", "err", err)
		}
	}
	if h.Events == nil {
		return
	}
	ev := queue.DiagramEvent{
		Type:       evType,
		DiagramID:  id,
		Actor:      subject(c),
		OccurredAt: Timestamp(time.Now()),
	}
	if d != nil {
		ev.PackageID = d.PackageID
		ev.Name = d.Name
		ev.DiagramType = d.DiagramType
	}
	// publisher logs its own failures
	_ = h.Events.Publish(ctx, ev)
}
