package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/simonhull/audiounlock"
)

// TaskView is the JSON form of a task.
type TaskView struct {
	SubmittedAt time.Time             `json:"submittedAt"`
	FinishedAt  *time.Time            `json:"finishedAt,omitempty"`
	Name        string                `json:"name"`
	Output      string                `json:"output,omitempty"`
	Message     string                `json:"message,omitempty"`
	Kind        string                `json:"kind,omitempty"`
	Format      string                `json:"format,omitempty"`
	Artwork     string                `json:"artwork,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
	ID          audiounlock.TaskID    `json:"id"`
	State       audiounlock.TaskState `json:"state"`
}

func viewOf(t audiounlock.Task) TaskView {
	v := TaskView{
		ID:          t.ID,
		Name:        t.Name,
		State:       t.State,
		SubmittedAt: t.SubmittedAt,
		Output:      t.OutputName(),
		Message:     t.Message(),
	}
	if !t.FinishedAt.IsZero() {
		finished := t.FinishedAt
		v.FinishedAt = &finished
	}
	if t.Err != nil {
		if k := audiounlock.KindOf(t.Err); k != 0 {
			v.Kind = k.String()
		}
	}
	if r := t.Result; r != nil && r.Payload != nil {
		v.Format = r.Format.String()
		if r.Artwork != nil {
			v.Artwork = r.Artwork.String()
		}
		for _, w := range r.Warnings {
			v.Warnings = append(v.Warnings, w.String())
		}
	}
	return v
}

func (s *Server) createTasks(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected a multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, `no "files" in form`)
	}

	sources := make([]audiounlock.Source, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot read %s", fh.Filename))
		}
		sources = append(sources, audiounlock.BytesSource{Filename: fh.Filename, Data: data})
	}

	ids, err := s.session.Submit(sources...)
	if err != nil {
		return err
	}

	views := make([]TaskView, 0, len(ids))
	for _, id := range ids {
		task, err := s.session.Task(id)
		if err != nil {
			return err
		}
		views = append(views, viewOf(task))
	}
	return c.JSON(http.StatusAccepted, views)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) listTasks(c echo.Context) error {
	tasks, err := s.session.Tasks()
	if err != nil {
		return err
	}
	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = viewOf(t)
	}
	return c.JSON(http.StatusOK, views)
}

func (s *Server) task(c echo.Context) (audiounlock.Task, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return audiounlock.Task{}, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	return s.session.Task(id)
}

func (s *Server) getTask(c echo.Context) error {
	task, err := s.task(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewOf(task))
}

func (s *Server) getAudio(c echo.Context) error {
	task, err := s.task(c)
	if err != nil {
		return err
	}
	if task.State != audiounlock.TaskFinished {
		return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("task is %s", task.State))
	}

	r := task.Result
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", r.Name))
	return c.Blob(http.StatusOK, r.Format.MIMEType(), r.Audio)
}

func (s *Server) getArtwork(c echo.Context) error {
	task, err := s.task(c)
	if err != nil {
		return err
	}
	if task.Result == nil || task.Result.Artwork == nil {
		return echo.NewHTTPError(http.StatusNotFound, "task has no artwork")
	}
	art := task.Result.Artwork
	return c.Blob(http.StatusOK, art.MIMEType(), art.Data)
}

func sinceParam(c echo.Context) (int64, error) {
	raw := c.QueryParam("since")
	if raw == "" {
		return 0, nil
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "since must be a non-negative integer")
	}
	return seq, nil
}

func (s *Server) listEvents(c echo.Context) error {
	since, err := sinceParam(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.events.Since(since))
}

// streamEvents sends the retained backlog after since, then every new
// event, until the client disconnects.
func (s *Server) streamEvents(c echo.Context) error {
	since, err := sinceParam(c)
	if err != nil {
		return err
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Subscribe before reading the backlog so nothing falls in between.
	live, unsubscribe := s.events.Subscribe(64)
	defer unsubscribe()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	last := since
	for _, ev := range s.events.Since(since) {
		if err := conn.WriteJSON(ev); err != nil {
			return nil
		}
		last = ev.Seq
	}

	ctx := c.Request().Context()
	for {
		select {
		case ev, ok := <-live:
			if !ok {
				return nil
			}
			if ev.Seq <= last {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				return nil
			}
			last = ev.Seq
		case <-gone:
			return nil
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
			return nil
		}
	}
}

func bodyLimit(n int64) string {
	return strconv.FormatInt(n, 10) + "B"
}
