package httpserver

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/service/rooming"
)

type assignRequest struct {
	RoomID   string      `json:"roomId" binding:"required"`
	ClientID string      `json:"clientId" binding:"required"`
	City     domain.City `json:"city" binding:"required"`
}

type roomTypeRequest struct {
	Type domain.RoomType `json:"type" binding:"required"`
}

func listRoomsHandler(svc RoomingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := svc.RoomsWithOccupancy(c.Request.Context(), domain.City(c.Query("city")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, views)
	}
}

func unassignedClientsHandler(svc RoomingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clients, err := svc.UnassignedClients(c.Request.Context(), domain.City(c.Query("city")), c.Query("q"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, clients)
	}
}

func createRoomHandler(svc RoomingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in rooming.NewRoom
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		room, err := svc.CreateRoom(c.Request.Context(), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, room)
	}
}

func changeRoomTypeHandler(svc RoomingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req roomTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		room, err := svc.ChangeRoomType(c.Request.Context(), c.Param("id"), req.Type)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, room)
	}
}

func deleteRoomHandler(svc RoomingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteRoom(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func assignHandler(svc RoomingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		if err := svc.AssignClientToRoom(c.Request.Context(), req.RoomID, req.ClientID, req.City); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// unassignHandler clears every city when no city query is given.
func unassignHandler(svc RoomingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		city := domain.City(c.Query("city"))
		if err := svc.RemoveClientFromRoom(c.Request.Context(), c.Param("clientId"), city); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// roomEventsHandler streams rooming cache events as server-sent events until
// the client goes away. Refreshed events carry any rooms found over capacity.
func roomEventsHandler(svc RoomingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, cancel := svc.Subscribe()
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		ctx := c.Request.Context()
		c.Stream(func(io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case ev, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent(string(ev.Kind), ev)
				return true
			}
		})
	}
}
