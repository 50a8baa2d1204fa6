package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/bidmarket/app/services"
	"github.com/shashiranjanraj/bidmarket/pkg/container"
	"github.com/shashiranjanraj/bidmarket/pkg/ctx"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
)

type NotificationController struct {
	actors
	notifications *services.NotificationService
}

func NewNotificationController(c *container.Container) *NotificationController {
	return &NotificationController{
		actors:        newActors(c),
		notifications: container.Make[*services.NotificationService](c),
	}
}

// Index handles GET /api/notifications?limit=&page=. Without page the latest
// notifications are returned; with it the body also carries total, page and
// pages.
func (nc *NotificationController) Index(c *ctx.Context) {
	u, ok := nc.actor(c)
	if !ok {
		return
	}
	limit, _, ok := c.QueryInt("limit")
	if !ok {
		return
	}
	page, _, ok := c.QueryInt("page")
	if !ok {
		return
	}

	list, err := nc.notifications.List(c.Context(), u, services.ListParams{Limit: limit, Page: page})
	if err != nil {
		c.Fail(err)
		return
	}

	body := response.H{"notifications": list.Items}
	if p := list.Pagination; p != nil {
		body["total"] = p.Total
		body["page"] = p.Page
		body["pages"] = p.Pages
	}
	c.Message(http.StatusOK, "Notifications fetched successfully.", body)
}

// Read handles PUT /api/notifications/{id}/read.
func (nc *NotificationController) Read(c *ctx.Context) {
	u, ok := nc.actor(c)
	if !ok {
		return
	}
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}

	if err := nc.notifications.MarkRead(c.Context(), u, id); err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Notification marked as read", nil)
}

// ReadAll handles PUT /api/notifications/read-all.
func (nc *NotificationController) ReadAll(c *ctx.Context) {
	u, ok := nc.actor(c)
	if !ok {
		return
	}

	if _, err := nc.notifications.MarkAllRead(c.Context(), u); err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "All notifications marked as read", nil)
}

// UnreadCount handles GET /api/notifications/unread-count.
func (nc *NotificationController) UnreadCount(c *ctx.Context) {
	u, ok := nc.actor(c)
	if !ok {
		return
	}

	n, err := nc.notifications.UnreadCount(c.Context(), u)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Message(http.StatusOK, "Unread notifications counted.", response.H{"count": n})
}
