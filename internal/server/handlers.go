package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/notification"
)

type userResponse struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

type notificationResponse struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Title        string        `json:"title"`
	Text         string        `json:"text"`
	Placeholders []string      `json:"placeholders"`
	Target       string        `json:"target,omitempty"`
	CourseID     int64         `json:"course_id,omitempty"`
	Group        int64         `json:"tutorial_group_id,omitempty"`
	Author       *userResponse `json:"author,omitempty"`
	CreatedAt    string        `json:"created_at"`
}

func toNotificationResponse(n notification.Notification) notificationResponse {
	resp := notificationResponse{
		ID:           n.ID,
		Type:         string(n.Type),
		Title:        n.Title,
		Text:         n.Text,
		Placeholders: n.Placeholders,
		Target:       n.Target,
		CourseID:     n.CourseID,
		Group:        n.TutorialGroupID,
		CreatedAt:    n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if resp.Placeholders == nil {
		resp.Placeholders = []string{}
	}
	if n.Author != nil {
		resp.Author = &userResponse{ID: n.Author.ID, Login: n.Author.Login, Name: n.Author.Name}
	}
	return resp
}

// settingBody is both the GET item and the PUT payload item.
type settingBody struct {
	Category string `json:"category" binding:"required"`
	WebApp   bool   `json:"webapp"`
	Email    bool   `json:"email"`
	Stored   bool   `json:"stored"`
}

// handleList returns the caller's notifications together with the
// group-scope notifications of the tutorial groups in their token.
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)

		limit := DefaultListLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		list, err := s.store.ListForUser(c.Request.Context(), userID, TutorialGroups(c), limit)
		if err != nil {
			s.logger.Error("list notifications failed", "user", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
			return
		}

		out := make([]notificationResponse, 0, len(list))
		for _, n := range list {
			out = append(out, toNotificationResponse(n))
		}
		c.JSON(http.StatusOK, out)
	}
}

// handleGetSettings returns one entry per category: the stored setting when
// present, else the effective default.
func (s *Server) handleGetSettings() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)

		stored, err := s.store.ListSettings(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("list settings failed", "user", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list settings"})
			return
		}
		byCategory := make(map[notification.Category]notification.Setting, len(stored))
		for _, st := range stored {
			byCategory[st.Category] = st
		}

		out := make([]settingBody, 0, len(notification.Categories()))
		for _, cat := range notification.Categories() {
			if st, ok := byCategory[cat]; ok {
				out = append(out, settingBody{Category: cat.Key(), WebApp: st.WebApp, Email: st.Email, Stored: true})
				continue
			}
			d := s.defaults.Default(cat)
			out = append(out, settingBody{Category: cat.Key(), WebApp: d.WebApp, Email: d.Email})
		}
		c.JSON(http.StatusOK, out)
	}
}

// handlePutSettings upserts the given settings. The whole request is
// rejected if any category is unknown.
func (s *Server) handlePutSettings() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)

		var body []settingBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		settings := make([]notification.Setting, 0, len(body))
		for _, b := range body {
			cat, err := notification.ParseCategory(b.Category)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			settings = append(settings, notification.Setting{UserID: userID, Category: cat, WebApp: b.WebApp, Email: b.Email})
		}

		for _, st := range settings {
			if err := s.store.PutSetting(c.Request.Context(), st); err != nil {
				s.logger.Error("put setting failed", "user", userID, "category", st.Category.Key(), "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
				return
			}
		}

		out := make([]settingBody, 0, len(settings))
		for _, st := range settings {
			out = append(out, settingBody{Category: st.Category.Key(), WebApp: st.WebApp, Email: st.Email, Stored: true})
		}
		c.JSON(http.StatusOK, out)
	}
}

// handleStream relays the user's live topic as server-sent events until the
// client disconnects.
func (s *Server) handleStream() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		ch, cancel := s.hub.Subscribe(dispatch.UserTopic(userID))
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)
		c.Writer.Flush()

		ctx := c.Request.Context()
		c.Stream(func(_ io.Writer) bool {
			select {
			case n, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent("notification", toNotificationResponse(n))
				return true
			case <-ctx.Done():
				return false
			}
		})
	}
}
