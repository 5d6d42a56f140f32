package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/brewhaus/coffee_shop/internal/models"
)

type AddressHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
}

type addressRequest struct {
	Label     string `json:"label"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	IsDefault bool   `json:"is_default"`
}

func (h *AddressHandler) ListAddresses(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var addresses []models.UserAddress
	if err := h.DB.Where("user_id = ?", userID).Order("id ASC").Find(&addresses).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, addresses)
}

func (h *AddressHandler) CreateAddress(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.FullName == "" || req.Address == "" || req.City == "" || req.State == "" || req.Pincode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "full_name, address, city, state and pincode are required")
	}

	address := models.UserAddress{
		UserID:   userID,
		Label:    req.Label,
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		City:     req.City,
		State:    req.State,
		Pincode:  req.Pincode,
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&models.UserAddress{}).
				Where("user_id = ?", userID).
				Update("is_default", false).Error; err != nil {
				return err
			}
			address.IsDefault = true
		}
		return tx.Create(&address).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	return c.JSON(http.StatusCreated, address)
}

func (h *AddressHandler) UpdateAddress(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var address models.UserAddress
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "address not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	address.Label = req.Label
	address.FullName = req.FullName
	address.Phone = req.Phone
	address.Address = req.Address
	address.City = req.City
	address.State = req.State
	address.Pincode = req.Pincode

	if err := h.DB.Save(&address).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, address)
}

func (h *AddressHandler) DeleteAddress(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	result := h.DB.Where("id = ? AND user_id = ?", id, userID).Delete(&models.UserAddress{})
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "address not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// SetDefaultAddress clears every other default and sets the chosen one in a
// single transaction, so at most one default row can ever be observed.
func (h *AddressHandler) SetDefaultAddress(c echo.Context) error {
	userID, err := GetID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var address models.UserAddress
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "address not found")
			}
			return err
		}
		if err := tx.Model(&models.UserAddress{}).
			Where("user_id = ?", userID).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserAddress{}).
			Where("id = ?", address.ID).
			Update("is_default", true).Error
	})
	if txErr != nil {
		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"default_address": id})
}
