// This file defines group booking endpoints: creating a group for an
// event, joining via invite code and running the orchestrated group
// purchase.

package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/service"
)

// GroupHandler bundles the group service behind the group routes.
type GroupHandler struct {
    Groups *service.GroupService
}

func NewGroupHandler(groups *service.GroupService) *GroupHandler {
    if groups == nil {
        panic("nil dependency passed to NewGroupHandler")
    }
    return &GroupHandler{Groups: groups}
}

type createGroupReq struct {
    EventID    uint64 `json:"event_id" validate:"required,gt=0"`
    Name       string `json:"name" validate:"required,min=1,max=120"`
    MaxMembers uint32 `json:"max_members" validate:"required,gte=2,lte=200"`
}

type joinGroupReq struct {
    InviteCode string `json:"invite_code" validate:"required"`
}

type groupPurchaseReq struct {
    Orders []service.MemberOrder `json:"orders" validate:"required,min=1,dive"`
}

type groupResp struct {
    ID         uint64 `json:"id"`
    EventID    uint64 `json:"event_id"`
    Name       string `json:"name"`
    InviteCode string `json:"invite_code"`
    MaxMembers uint32 `json:"max_members"`
    IsActive   bool   `json:"is_active"`
}

func toGroupResp(g *model.Group) groupResp {
    return groupResp{
        ID:         g.ID,
        EventID:    g.EventID,
        Name:       g.Name,
        InviteCode: g.InviteCode,
        MaxMembers: g.MaxMembers,
        IsActive:   g.IsActive,
    }
}

// Create creates a group with the caller as its admin member.
func (h *GroupHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createGroupReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    g, err := h.Groups.CreateGroup(c.Request().Context(), uid, req.EventID, req.Name, req.MaxMembers)
    if err != nil {
        return respondErr(c, err)
    }
    return c.JSON(http.StatusCreated, toGroupResp(g))
}

// Join adds the caller to the group behind the invite code.
func (h *GroupHandler) Join(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req joinGroupReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    g, err := h.Groups.Join(c.Request().Context(), uid, req.InviteCode)
    if err != nil {
        return respondErr(c, err)
    }
    return c.JSON(http.StatusOK, toGroupResp(g))
}

// Get returns a group and its members. Only members may look.
func (h *GroupHandler) Get(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    g, members, err := h.Groups.Get(c.Request().Context(), id, uid)
    if err != nil {
        return respondErr(c, err)
    }
    type memberResp struct {
        UserID  uint64 `json:"user_id"`
        IsAdmin bool   `json:"is_admin"`
    }
    out := make([]memberResp, 0, len(members))
    for _, m := range members {
        out = append(out, memberResp{UserID: m.UserID, IsAdmin: m.IsAdmin})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "group":   toGroupResp(g),
        "members": out,
        "totals": echo.Map{
            "bookings":       g.TotalBookings,
            "amount_cents":   g.TotalAmountCents,
            "discount_cents": g.DiscountAppliedCents,
        },
    })
}

// Purchase runs the all-or-nothing group purchase. Only group admins
// may start it.
func (h *GroupHandler) Purchase(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req groupPurchaseReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    result, err := h.Groups.Purchase(c.Request().Context(), uid, id, req.Orders)
    if err != nil {
        return respondErr(c, err)
    }
    return c.JSON(http.StatusCreated, result)
}
