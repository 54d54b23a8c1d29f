package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/luyandamncube/openclaw-mission-control/pkg/cache"
)

// API resource templates.
const (
	ResourceAgents    = "/api/v1/agents"
	ResourceBoards    = "/api/v1/boards"
	ResourceTasks     = "/api/v1/boards/{board_id}/tasks"
	ResourceApprovals = "/api/v1/boards/{board_id}/approvals"
)

// DefaultPageSize matches the backend's default page size.
const DefaultPageSize = 50

func pageParams(limit, offset int) url.Values {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return url.Values{
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(offset)},
	}
}

// AgentsKey addresses a page of the agent list.
func AgentsKey(limit, offset int) cache.QueryKey {
	return cache.QueryKey{Resource: ResourceAgents, Params: pageParams(limit, offset)}
}

// BoardsKey addresses a page of the board list.
func BoardsKey(limit, offset int) cache.QueryKey {
	return cache.QueryKey{Resource: ResourceBoards, Params: pageParams(limit, offset)}
}

// TasksKey addresses a page of a board's tasks.
func TasksKey(boardID uuid.UUID, limit, offset int) cache.QueryKey {
	return cache.QueryKey{
		Resource:   ResourceTasks,
		PathParams: map[string]string{"board_id": boardID.String()},
		Params:     pageParams(limit, offset),
	}
}

// ApprovalsKey addresses a page of a board's approvals, optionally filtered
// by status.
func ApprovalsKey(boardID uuid.UUID, status string, limit, offset int) cache.QueryKey {
	params := pageParams(limit, offset)
	if status != "" {
		params.Set("status", status)
	}
	return cache.QueryKey{
		Resource:   ResourceApprovals,
		PathParams: map[string]string{"board_id": boardID.String()},
		Params:     params,
	}
}

// DeleteAgent deletes an agent.
func (c *Client) DeleteAgent(ctx context.Context, id uuid.UUID) error {
	return c.Delete(ctx, ResourceAgents+"/"+id.String())
}

// DeleteBoard deletes a board.
func (c *Client) DeleteBoard(ctx context.Context, id uuid.UUID) error {
	return c.Delete(ctx, ResourceBoards+"/"+id.String())
}

// DeleteTask deletes a task from a board.
func (c *Client) DeleteTask(ctx context.Context, boardID, taskID uuid.UUID) error {
	key := cache.QueryKey{Resource: ResourceTasks, PathParams: map[string]string{"board_id": boardID.String()}}
	return c.Delete(ctx, key.Path()+"/"+taskID.String())
}
