package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/importer"
)

func listClientsHandler(svc ClientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		clients, err := svc.List(c.Request.Context(), c.Query("q"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, clients)
	}
}

func createClientHandler(svc ClientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in domain.Client
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		in.ID = ""
		created, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

func getClientHandler(svc ClientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		client, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func updateClientHandler(svc ClientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p domain.ClientPatch
		if err := c.ShouldBindJSON(&p); err != nil {
			badRequest(c, err)
			return
		}
		client, err := svc.Update(c.Request.Context(), c.Param("id"), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func deleteClientHandler(svc ClientService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type importResponse struct {
	Batch     *importer.Batch `json:"batch"`
	Committed bool            `json:"committed"`
	Created   []domain.Client `json:"created"`
}

// importHandler stages the uploaded "file" and writes it only when commit=true.
func importHandler(svc ImportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		commit, err := strconv.ParseBool(c.DefaultQuery("commit", "false"))
		if err != nil {
			badRequest(c, fmt.Errorf("commit: %w", err))
			return
		}
		fh, err := c.FormFile("file")
		if err != nil {
			badRequest(c, fmt.Errorf("file: %w", err))
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeError(c, fmt.Errorf("open upload: %w", domain.ErrImportParse))
			return
		}
		defer f.Close()

		ctx := c.Request.Context()
		batch, err := svc.Stage(ctx, f, fh.Filename)
		if err != nil {
			writeError(c, err)
			return
		}
		res := importResponse{Batch: batch, Created: []domain.Client{}}
		if commit {
			created, err := svc.Commit(ctx, batch)
			if err != nil {
				writeError(c, err)
				return
			}
			res.Committed, res.Created = true, created
		}
		c.JSON(http.StatusOK, res)
	}
}
