package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fittrack/internal/admin"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/tips"
)

// TipRow is a tip as listed in the admin console.
type TipRow struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	HasImage bool   `json:"hasImage"`
	Posted   string `json:"posted"`
}

func tipRows(list []models.Tip) []TipRow {
	rows := make([]TipRow, len(list))
	for i, t := range list {
		rows[i] = TipRow{
			ID:       t.ID,
			Title:    t.Title,
			Text:     t.Text,
			HasImage: t.HasImage(),
			Posted:   tips.FormatTime(t.CreatedAt),
		}
	}
	return rows
}

// openAdmin runs the admin gate and the initial load. ok is false when the
// response has already been written.
func (s *Server) openAdmin(c *fiber.Ctx) (page admin.Page, ok bool, err error) {
	page = s.Admin.Open(c.UserContext(), caller(c))
	switch {
	case page.Gate == admin.GateLoginRequired:
		return page, false, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": page.Status})
	case page.Gate == admin.GateDenied:
		return page, false, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": page.Status})
	case page.Status != "":
		return page, false, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": page.Status})
	}
	return page, true, nil
}

// confirmed approves destructive actions only when the request says
// confirm=true.
func confirmed(c *fiber.Ctx) admin.Confirm {
	ok := c.QueryBool("confirm", false)
	return func(string) bool { return ok }
}

func (s *Server) handleAdminProfiles(c *fiber.Ctx) error {
	page, ok, err := s.openAdmin(c)
	if !ok {
		return err
	}
	st := page.State.WithFilter(c.Query("q"))
	return c.JSON(fiber.Map{"users": st.Visible(), "filter": st.Filter()})
}

func (s *Server) handleToggleAdmin(c *fiber.Ctx) error {
	page, ok, err := s.openAdmin(c)
	if !ok {
		return err
	}
	id := c.Params("id")
	st, err := s.Admin.ToggleAdmin(c.UserContext(), caller(c), page.State, id)
	if err != nil {
		return fail(c, err, prefixAction)
	}
	user, _ := st.User(id)
	return c.JSON(fiber.Map{"user": user})
}

func (s *Server) handleDeleteProfile(c *fiber.Ctx) error {
	page, ok, err := s.openAdmin(c)
	if !ok {
		return err
	}
	st, err := s.Admin.DeleteProfile(c.UserContext(), caller(c), page.State, c.Params("id"), confirmed(c))
	if err != nil {
		return fail(c, err, prefixDelete)
	}
	return c.JSON(fiber.Map{"users": st.Visible()})
}

func (s *Server) handleAdminTips(c *fiber.Ctx) error {
	page, ok, err := s.openAdmin(c)
	if !ok {
		return err
	}
	return c.JSON(fiber.Map{"tips": tipRows(page.State.Tips())})
}

func (s *Server) handleAddTip(c *fiber.Ctx) error {
	page, ok, err := s.openAdmin(c)
	if !ok {
		return err
	}
	var req models.NewTipRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	st, err := s.Admin.AddTip(c.UserContext(), caller(c), page.State, req)
	if errors.Is(err, admin.ErrTipTextRequired) {
		return badRequest(c, admin.MsgTipTextNeeded)
	}
	if err != nil {
		return fail(c, err, prefixAdd)
	}
	s.tipsChanged()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status": admin.MsgTipAdded,
		"tips":   tipRows(st.Tips()),
	})
}

func (s *Server) handleDeleteTip(c *fiber.Ctx) error {
	page, ok, err := s.openAdmin(c)
	if !ok {
		return err
	}
	st, err := s.Admin.DeleteTip(c.UserContext(), caller(c), page.State, c.Params("id"), confirmed(c))
	if err != nil {
		return fail(c, err, prefixDelete)
	}
	s.tipsChanged()
	return c.JSON(fiber.Map{"tips": tipRows(st.Tips())})
}
