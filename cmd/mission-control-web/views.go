package main

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/luyandamncube/openclaw-mission-control/pkg/cache"
	"github.com/luyandamncube/openclaw-mission-control/pkg/client"
	"github.com/luyandamncube/openclaw-mission-control/pkg/mutation"
	"github.com/luyandamncube/openclaw-mission-control/pkg/navigation"
	"github.com/luyandamncube/openclaw-mission-control/pkg/sortstate"
)

type column[T any] struct {
	id      string
	compare func(a, b T) int
}

// listView describes one sortable, deletable list page.
type listView[T any] struct {
	name    string
	prefix  string
	columns []column[T]
	def     []sortstate.Sort
	idParam string
	itemID  func(T) string
	key     func(r *http.Request, limit, offset int) (cache.QueryKey, error)
	remove  func(ctx context.Context, r *http.Request, id uuid.UUID) error
}

func (v listView[T]) columnIDs() []string {
	ids := make([]string, len(v.columns))
	for i, c := range v.columns {
		ids[i] = c.id
	}
	return ids
}

func (v listView[T]) controller(s *server, loc sortstate.Location) (*sortstate.Controller, error) {
	return sortstate.New(loc, sortstate.Config{
		Columns: v.columnIDs(),
		Default: v.def,
		Prefix:  v.prefix,
		Logger:  &s.logger,
	})
}

// sortItems orders items by the first sort entry. Ties keep API order.
func (v listView[T]) sortItems(items []T, sorting []sortstate.Sort) {
	if len(sorting) == 0 {
		return
	}
	for _, c := range v.columns {
		if c.id != sorting[0].ColumnID {
			continue
		}
		desc := sorting[0].Descending
		slices.SortStableFunc(items, func(a, b T) int {
			if desc {
				return c.compare(b, a)
			}
			return c.compare(a, b)
		})
		return
	}
}

func (s *server) agentsView() listView[client.Agent] {
	return listView[client.Agent]{
		name: "agents",
		columns: []column[client.Agent]{
			{"name", func(a, b client.Agent) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }},
			{"status", func(a, b client.Agent) int { return strings.Compare(a.Status, b.Status) }},
			{"last_seen_at", func(a, b client.Agent) int { return compareOptionalTime(a.LastSeenAt, b.LastSeenAt) }},
			{"updated_at", func(a, b client.Agent) int { return a.UpdatedAt.Compare(b.UpdatedAt.Time) }},
		},
		def:     []sortstate.Sort{{ColumnID: "name"}},
		idParam: "agentID",
		itemID:  client.Agent.Identity,
		key: func(_ *http.Request, limit, offset int) (cache.QueryKey, error) {
			return client.AgentsKey(limit, offset), nil
		},
		remove: func(ctx context.Context, _ *http.Request, id uuid.UUID) error {
			return s.client.DeleteAgent(ctx, id)
		},
	}
}

var taskPriorities = map[string]int{"low": 0, "medium": 1, "high": 2}

func (s *server) tasksView() listView[client.Task] {
	return listView[client.Task]{
		name:   "tasks",
		prefix: "tasks",
		columns: []column[client.Task]{
			{"title", func(a, b client.Task) int { return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }},
			{"status", func(a, b client.Task) int { return strings.Compare(a.Status, b.Status) }},
			{"priority", func(a, b client.Task) int { return cmp.Compare(taskPriorities[a.Priority], taskPriorities[b.Priority]) }},
			{"due_at", func(a, b client.Task) int { return compareOptionalTime(a.DueAt, b.DueAt) }},
			{"created_at", func(a, b client.Task) int { return a.CreatedAt.Compare(b.CreatedAt.Time) }},
		},
		def:     []sortstate.Sort{{ColumnID: "created_at", Descending: true}},
		idParam: "taskID",
		itemID:  client.Task.Identity,
		key: func(r *http.Request, limit, offset int) (cache.QueryKey, error) {
			boardID, err := uuid.Parse(chi.URLParam(r, "boardID"))
			if err != nil {
				return cache.QueryKey{}, fmt.Errorf("invalid board id: %w", err)
			}
			return client.TasksKey(boardID, limit, offset), nil
		},
		remove: func(ctx context.Context, r *http.Request, id uuid.UUID) error {
			boardID, err := uuid.Parse(chi.URLParam(r, "boardID"))
			if err != nil {
				return err
			}
			return s.client.DeleteTask(ctx, boardID, id)
		},
	}
}

// compareOptionalTime orders missing timestamps first.
func compareOptionalTime(a, b *client.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(b.Time)
	}
}

// paging reads limit and offset from the list query.
func (s *server) paging(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = s.pageSize
	}
	limit = min(limit, maxPageSize)
	offset, err = strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

type sortView struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

type columnView struct {
	ID     string `json:"id"`
	Sorted string `json:"sorted,omitempty"`
	// Href is the list URL after toggling this column: asc, desc, unsorted.
	Href string `json:"href"`
}

type listResponse[T any] struct {
	Items   []T          `json:"items"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Sorting []sortView   `json:"sorting"`
	Columns []columnView `json:"columns"`
}

func nextToggle(columnID string, sorting []sortstate.Sort) []sortstate.Sort {
	if len(sorting) == 0 || sorting[0].ColumnID != columnID {
		return []sortstate.Sort{{ColumnID: columnID}}
	}
	if !sorting[0].Descending {
		return []sortstate.Sort{{ColumnID: columnID, Descending: true}}
	}
	return nil
}

func listHandler[T any](s *server, v listView[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := s.paging(r)
		key, err := v.key(r, limit, offset)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctl, err := v.controller(s, navigation.FromRequest(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		defer ctl.Close()

		page, err := client.Fetch[T](r.Context(), s.client, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key.String()).Msg("List fetch failed")
			writeError(w, upstreamStatus(err), err.Error())
			return
		}

		sorting := ctl.Sorting()
		items := page.Items
		if items == nil {
			items = []T{}
		}
		v.sortItems(items, sorting)

		resp := listResponse[T]{
			Items:   items,
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			Sorting: make([]sortView, 0, len(sorting)),
		}
		for _, sort := range sorting {
			resp.Sorting = append(resp.Sorting, sortView{ID: sort.ColumnID, Desc: sort.Descending})
		}
		for _, c := range v.columns {
			col := columnView{ID: c.id, Href: ctl.Href(nextToggle(c.id, sorting))}
			if len(sorting) > 0 && sorting[0].ColumnID == c.id {
				col.Sorted = sorting[0].Direction()
			}
			resp.Columns = append(resp.Columns, col)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// sortHandler applies the posted column and dir to the list URL and
// redirects to it. The list query rides on the form action's query string.
func sortHandler[T any](s *server, v listView[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}

		var next []sortstate.Sort
		columnID := r.PostForm.Get("column")
		switch dir := r.PostForm.Get("dir"); {
		case dir == sortstate.SentinelNone || columnID == "":
		case dir == sortstate.DirAsc || dir == "":
			next = []sortstate.Sort{{ColumnID: columnID}}
		case dir == sortstate.DirDesc:
			next = []sortstate.Sort{{ColumnID: columnID, Descending: true}}
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid dir %q", dir))
			return
		}

		loc := navigation.NewRequestLocation(path.Dir(r.URL.Path), r.URL.RawQuery)
		ctl, err := v.controller(s, loc)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		defer ctl.Close()

		ctl.SetSorting(next)
		s.redirect(w, r, loc)
	}
}

// deleteHandler removes the item optimistically from the cached page the
// user is looking at, sends the delete and redirects back to the list.
func deleteHandler[T any](s *server, v listView[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, v.idParam))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}

		limit, offset := s.paging(r)
		key, err := v.key(r, limit, offset)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		coordinator, err := mutation.New(mutation.Config[T, uuid.UUID]{
			Cache:    s.client.Cache(),
			Key:      key,
			ItemID:   v.itemID,
			TargetID: uuid.UUID.String,
			Resource: v.name,
			Logger:   &s.logger,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		err = coordinator.Run(r.Context(), id, func(ctx context.Context, id uuid.UUID) error {
			return v.remove(ctx, r, id)
		})
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		loc := navigation.FromRequest(r)
		list := path.Dir(path.Dir(r.URL.Path))
		if r.URL.RawQuery != "" {
			list += "?" + r.URL.RawQuery
		}
		navigation.Navigate(loc, list, navigation.ModePush)
		s.redirect(w, r, loc)
	}
}
