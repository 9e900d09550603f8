package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/park285/opening-quiz/internal/adapter/quizpresenter"
	"github.com/park285/opening-quiz/internal/openingname"
	"github.com/park285/opening-quiz/internal/quiz"
	"github.com/park285/opening-quiz/pkg/quizdto"
)

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Unix(),
		"sessions": h.svc.SessionCount(),
	})
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	id, sess, err := h.svc.CreateSession(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(quizdto.CreateSessionResponse{State: h.pres.State(id, sess.Snapshot())})
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	sess, err := h.svc.Session(id)
	if err != nil {
		return err
	}
	return h.state(c, id, sess.Snapshot())
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	if err := h.svc.CloseSession(c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) PlayMove(c *fiber.Ctx) error {
	var req quizdto.MoveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.playerMove(c, req.Move)
}

func (h *Handler) playerMove(c *fiber.Ctx, move string) error {
	id := c.Params("id")
	sess, err := h.svc.Session(id)
	if err != nil {
		return err
	}
	st, err := sess.PlayerMove(c.UserContext(), move)
	if err != nil {
		return err
	}
	return h.state(c, id, st)
}

// Action applies any client action. Moves go through the player path so
// the automatic reply follows.
func (h *Handler) Action(c *fiber.Ctx) error {
	var req quizdto.ActionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	act, err := quizpresenter.Action(req)
	if err != nil {
		return err
	}
	if mv, ok := act.(quiz.PlayMove); ok {
		return h.playerMove(c, mv.Move)
	}
	return h.dispatch(c, act)
}

func (h *Handler) Key(c *fiber.Ctx) error {
	act, ok := quiz.KeyAction(c.Params("key"))
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unmapped key")
	}
	return h.dispatch(c, act)
}

func (h *Handler) dispatch(c *fiber.Ctx, act quiz.Action) error {
	id := c.Params("id")
	sess, err := h.svc.Session(id)
	if err != nil {
		return err
	}
	st, err := sess.Dispatch(c.UserContext(), act)
	if err != nil {
		return err
	}
	return h.state(c, id, st)
}

func (h *Handler) LoadPGN(c *fiber.Ctx) error {
	var req quizdto.LoadRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id := c.Params("id")
	if req.Save {
		st, rec, err := h.svc.Save(c.UserContext(), id, req.PGN)
		if err != nil {
			return err
		}
		h.logger.Info("quiz_save", zap.String("session_id", id), zap.String("quiz_id", rec.ID))
		return h.state(c, id, st)
	}
	st, err := h.svc.Load(c.UserContext(), id, req.PGN)
	if err != nil {
		return err
	}
	return h.state(c, id, st)
}

func (h *Handler) BoardPNG(c *fiber.Ctx) error {
	data, err := h.svc.BoardPNG(c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

func (h *Handler) Index(c *fiber.Ctx) error {
	sess, err := h.svc.Session(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(quizpresenter.Index(sess.Snapshot().Index))
}

func (h *Handler) Openings(c *fiber.Ctx) error {
	sess, err := h.svc.Session(c.Params("id"))
	if err != nil {
		return err
	}
	st := sess.Snapshot()
	if st.Loaded == nil {
		return c.JSON([]quizdto.OpeningLine{})
	}
	return c.JSON(quizpresenter.Openings(openingname.Catalog(st.Loaded.Games)))
}

func (h *Handler) LoadSaved(c *fiber.Ctx) error {
	id := c.Params("id")
	st, err := h.svc.LoadSaved(c.UserContext(), id, c.Params("quizId"))
	if err != nil {
		return err
	}
	return h.state(c, id, st)
}

func (h *Handler) ListSaved(c *fiber.Ctx) error {
	list, err := h.svc.ListSaved(c.UserContext())
	if err != nil {
		return err
	}
	out := h.pres.Saved(list)
	if out == nil {
		out = []quizdto.SavedQuiz{}
	}
	return c.JSON(quizdto.SavedList{Quizzes: out})
}

func (h *Handler) DeleteSaved(c *fiber.Ctx) error {
	if err := h.svc.DeleteSaved(c.UserContext(), c.Params("quizId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) state(c *fiber.Ctx, id string, st quiz.State) error {
	return c.JSON(quizdto.StateResponse{State: h.pres.State(id, st)})
}
