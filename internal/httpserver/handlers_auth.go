package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"umrah-backoffice/internal/service/auth"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		session, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func meHandler(c *gin.Context) {
	c.JSON(http.StatusOK, mustActor(c))
}

func listAgentsHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		agents, err := svc.ListAgents(c.Request.Context(), mustActor(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, agents)
	}
}

func createAgentHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auth.NewAgent
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
		created, err := svc.CreateAgent(c.Request.Context(), mustActor(c), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func deleteAgentHandler(svc AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteAgent(c.Request.Context(), mustActor(c), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
