package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/caffeinepub/momentum-sub000/domain"
	"github.com/caffeinepub/momentum-sub000/engine"
)

const defaultNoticeWait = 25 * time.Second

// Register wires the board daemon's routes on the provided Echo instance.
func Register(e *echo.Echo, boards *engine.BoardStore, session *engine.Session, coord *engine.Coordinator, containers *domain.ContainerSet, notices *Notices, logger *log.Logger) {
	e.GET("/healthz", healthz())
	e.GET("/api/board", getBoard(boards, containers))
	e.GET("/api/board/:container", getContainer(boards, containers))
	e.GET("/api/notices", getNotices(notices))
	e.POST("/api/move", postMove(coord))

	drag := e.Group("/api/drag", DecompressRequests)
	drag.POST("/start", postDragStart(session))
	drag.POST("/move", postDragMove(session))
	drag.POST("/drop", postDragDrop(session, logger))
	drag.POST("/cancel", postDragCancel(session))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

type boardResponse struct {
	Containers []containerResponse `json:"containers"`
}

type containerResponse struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Kind  string        `json:"kind"`
	Tasks []domain.Task `json:"tasks"`
}

func getBoard(boards *engine.BoardStore, containers *domain.ContainerSet) echo.HandlerFunc {
	return func(c echo.Context) error {
		board := boards.Board()
		resp := boardResponse{}
		for _, id := range containers.IDs() {
			meta, _ := containers.Container(id)
			tasks := board.ItemsIn(id)
			if tasks == nil {
				tasks = []domain.Task{}
			}
			resp.Containers = append(resp.Containers, containerResponse{
				ID:    meta.ID,
				Name:  meta.Name,
				Kind:  string(meta.Kind),
				Tasks: tasks,
			})
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func getContainer(boards *engine.BoardStore, containers *domain.ContainerSet) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("container")
		meta, ok := containers.Container(id)
		if !ok {
			return c.String(http.StatusNotFound, "unknown container")
		}
		tasks := boards.Board().ItemsIn(id)
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return c.JSON(http.StatusOK, containerResponse{ID: meta.ID, Name: meta.Name, Kind: string(meta.Kind), Tasks: tasks})
	}
}

func postDragStart(session *engine.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dragStartRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.ItemID == "" {
			return c.String(http.StatusBadRequest, "itemId is required")
		}
		switch err := session.Press(req.ItemID, req.X, req.Y, req.Touch); {
		case errors.Is(err, engine.ErrDragActive):
			return c.String(http.StatusConflict, err.Error())
		case errors.Is(err, engine.ErrUnknownTask):
			return c.String(http.StatusNotFound, err.Error())
		case err != nil:
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postDragMove(session *engine.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dragMoveRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := session.Move(req.Container, req.Rects, req.X, req.Y); err != nil {
			if errors.Is(err, engine.ErrNoDrag) {
				return c.String(http.StatusConflict, err.Error())
			}
			return c.String(http.StatusInternalServerError, err.Error())
		}
		resp := hoverResponse{Phase: session.Phase().String()}
		if container, gap, ok := session.Hover(); ok {
			resp.Container = container
			resp.GapIndex = gap
			resp.Hovering = true
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func postDragDrop(session *engine.Session, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := session.Drop(c.Request().Context())
		switch {
		case errors.Is(err, engine.ErrNoDrag):
			return c.String(http.StatusConflict, err.Error())
		case errors.Is(err, engine.ErrQueueSaturated), errors.Is(err, engine.ErrShuttingDown):
			return c.String(http.StatusServiceUnavailable, err.Error())
		case err != nil:
			logger.WithError(err).Error("drop failed")
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusAccepted)
	}
}

func postDragCancel(session *engine.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		session.Cancel()
		return c.NoContent(http.StatusNoContent)
	}
}

func postMove(coord *engine.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req moveRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.ItemID == "" || req.Container == "" {
			return c.String(http.StatusBadRequest, "itemId and container are required")
		}
		switch err := coord.Move(c.Request().Context(), req.ItemID, req.Container, req.InsertAt); {
		case errors.Is(err, engine.ErrQueueSaturated), errors.Is(err, engine.ErrShuttingDown):
			return c.String(http.StatusServiceUnavailable, err.Error())
		case err != nil:
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusAccepted)
	}
}

func getNotices(notices *Notices) echo.HandlerFunc {
	return func(c echo.Context) error {
		out := notices.Drain()
		if len(out) == 0 && c.QueryParam("wait") != "" {
			wait := defaultNoticeWait
			if d, err := time.ParseDuration(c.QueryParam("wait")); err == nil && d > 0 && d < defaultNoticeWait {
				wait = d
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), wait)
			defer cancel()
			out = notices.Await(ctx)
		}
		if out == nil {
			out = []Notice{}
		}
		return c.JSON(http.StatusOK, out)
	}
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, dragBodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
