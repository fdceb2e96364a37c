package handler

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
)

// EventHandler serves studio events.
type EventHandler struct {
	Env
	Events *repository.EventRepo
}

func NewEventHandler(env Env, r *repository.EventRepo) *EventHandler {
	return &EventHandler{Env: env, Events: r}
}

type eventReq struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=10000"`
	Location    string `json:"location" validate:"omitempty,max=255"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Image       string `json:"image" validate:"omitempty,url,max=500"`
}

func (r eventReq) apply(e *model.Event) {
	e.Title = strings.TrimSpace(r.Title)
	e.Description = strings.TrimSpace(r.Description)
	e.Location = strings.TrimSpace(r.Location)
	e.Date = r.Date
	e.Image = r.Image
}

func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Events.List(ctx)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

func (h *EventHandler) Get(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid event id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, e)
}

func (h *EventHandler) Create(c echo.Context) error {
	var req eventReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	var e model.Event
	req.apply(&e)
	if err := h.Events.Create(ctx, &e); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "event created", e)
}

func (h *EventHandler) Update(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid event id")
	}
	var req eventReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	req.apply(&e)
	if err := h.Events.Update(ctx, &e); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "event updated", e)
}

func (h *EventHandler) Delete(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid event id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Events.Delete(ctx, id); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "event deleted", nil)
}

// BlogHandler serves blog posts.  The public side only sees published
// posts.
type BlogHandler struct {
	Env
	Blogs *repository.BlogRepo
}

func NewBlogHandler(env Env, r *repository.BlogRepo) *BlogHandler {
	return &BlogHandler{Env: env, Blogs: r}
}

type blogReq struct {
	Title     string `json:"title" validate:"required,max=200"`
	Slug      string `json:"slug" validate:"omitempty,max=200"`
	Content   string `json:"content" validate:"omitempty"`
	Author    string `json:"author" validate:"omitempty,max=120"`
	Image     string `json:"image" validate:"omitempty,url,max=500"`
	Published bool   `json:"published"`
}

func (r blogReq) apply(b *model.Blog) {
	b.Title = strings.TrimSpace(r.Title)
	b.Slug = Slugify(r.Slug)
	if b.Slug == "" {
		b.Slug = Slugify(r.Title)
	}
	b.Content = r.Content
	b.Author = strings.TrimSpace(r.Author)
	b.Image = r.Image
	b.Published = r.Published
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// List returns published posts.
func (h *BlogHandler) List(c echo.Context) error {
	return h.list(c, true)
}

// AdminList returns every post, drafts included.
func (h *BlogHandler) AdminList(c echo.Context) error {
	return h.list(c, false)
}

func (h *BlogHandler) list(c echo.Context, publishedOnly bool) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Blogs.List(ctx, publishedOnly)
	if err != nil {
		return h.respond(c, err)
	}
	return ok(c, http.StatusOK, list)
}

// GetBySlug returns a published post.  Drafts are reported as missing.
func (h *BlogHandler) GetBySlug(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Blogs.GetBySlug(ctx, c.Param("slug"))
	if err != nil {
		return h.respond(c, err)
	}
	if !b.Published {
		return fail(c, http.StatusNotFound, "not found")
	}
	return ok(c, http.StatusOK, b)
}

func (h *BlogHandler) Create(c echo.Context) error {
	var req blogReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	var b model.Blog
	req.apply(&b)
	if b.Slug == "" {
		return failFields(c, map[string]string{"slug": "required"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Blogs.Create(ctx, &b); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusCreated, "blog created", b)
}

func (h *BlogHandler) Update(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid blog id")
	}
	var req blogReq
	if okay, err := bind(c, &req); !okay {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Blogs.GetByID(ctx, id)
	if err != nil {
		return h.respond(c, err)
	}
	req.apply(&b)
	if b.Slug == "" {
		return failFields(c, map[string]string{"slug": "required"})
	}
	if err := h.Blogs.Update(ctx, &b); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "blog updated", b)
}

func (h *BlogHandler) Delete(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid blog id")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Blogs.Delete(ctx, id); err != nil {
		return h.respond(c, err)
	}
	return okMsg(c, http.StatusOK, "blog deleted", nil)
}
