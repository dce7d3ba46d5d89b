package facade

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/branchgraph/branchgraph/internal/diff"
	"github.com/branchgraph/branchgraph/internal/nodemgr"
	"github.com/branchgraph/branchgraph/internal/timestamp"
	"github.com/branchgraph/branchgraph/pkg/apperror"
)

func (h *Handlers) listBranches(c echo.Context) error {
	branches, err := h.Branches.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, branches)
}

func (h *Handlers) getBranch(c echo.Context) error {
	b, err := h.Branches.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

type createBranchRequest struct {
	Name       string `json:"name"`
	FromBranch string `json:"from_branch"`
	DataOnly   bool   `json:"data_only"`
}

func (h *Handlers) createBranch(c echo.Context) error {
	var req createBranchRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	b, err := h.Branches.Create(c.Request().Context(), req.Name, req.FromBranch, req.DataOnly)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handlers) deleteBranch(c echo.Context) error {
	if err := h.Branches.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) rebaseBranch(c echo.Context) error {
	b, err := h.Branches.Rebase(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handlers) mergeBranch(c echo.Context) error {
	at, err := parseTimeParam(c, "at", timestamp.Now())
	if err != nil {
		return err
	}
	if err := h.Merges.Merge(c.Request().Context(), c.Param("name"), at); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) getNode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid node id")
	}
	at, err := parseTimeParam(c, "at", timestamp.Now())
	if err != nil {
		return err
	}
	entity, err := h.Nodes.GetOne(c.Request().Context(), id, nodemgr.QueryOptions{
		Branch:        queryBranch(c),
		At:            at,
		IncludeSource: c.QueryParam("include_source") == "true",
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entity)
}

func (h *Handlers) queryNodes(c echo.Context) error {
	kind := c.Param("kind")
	at, err := parseTimeParam(c, "at", timestamp.Now())
	if err != nil {
		return err
	}
	var filters []nodemgr.Filter
	for key, values := range c.QueryParams() {
		if key == "branch" || key == "at" || key == "include_source" {
			continue
		}
		for _, v := range values {
			filters = append(filters, nodemgr.Filter{Path: splitFilterPath(key), Value: v})
		}
	}
	entities, err := h.Nodes.Query(c.Request().Context(), kind, filters, nodemgr.QueryOptions{
		Branch: queryBranch(c),
		At:     at,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entities)
}

type createNodeRequest struct {
	Branch        string                      `json:"branch"`
	Attributes    []nodemgr.AttributeInput    `json:"attributes"`
	Relationships []nodemgr.RelationshipInput `json:"relationships"`
}

func (h *Handlers) createNode(c echo.Context) error {
	kind := c.Param("kind")
	var req createNodeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if req.Branch == "" {
		req.Branch = "main"
	}
	id, err := h.Nodes.Init(kind, req.Branch).New(req.Attributes, req.Relationships).Save(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id.String()})
}

type updateAttributeRequest struct {
	Branch    string `json:"branch"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
	Type      string `json:"type"`
}

func (h *Handlers) updateAttribute(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid node id")
	}
	var req updateAttributeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithInternal(err)
	}
	if req.Branch == "" {
		req.Branch = "main"
	}
	if err := h.Nodes.UpdateAttribute(c.Request().Context(), id, req.Attribute, req.Value, req.Type, req.Branch); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) deleteNode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid node id")
	}
	if err := h.Nodes.DeleteEntity(c.Request().Context(), id, queryBranch(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handlers) diffData(c echo.Context) error {
	branch := c.QueryParam("branch")
	if branch == "" {
		return apperror.ErrBadRequest.WithMessage("branch is required")
	}
	from, err := parseTimeParam(c, "time_from", time.Time{})
	if err != nil {
		return err
	}
	to, err := parseTimeParam(c, "time_to", timestamp.Now())
	if err != nil {
		return err
	}
	branchOnly, _ := strconv.ParseBool(c.QueryParam("branch_only"))

	result, err := h.Diffs.Compute(c.Request().Context(), diff.Options{
		Branch:     branch,
		From:       from,
		To:         to,
		BranchOnly: branchOnly,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
