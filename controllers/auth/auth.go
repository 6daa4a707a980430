package authController

import (
	"log"
	"time"

	"clubreg/config"
	"clubreg/database"
	"clubreg/middleware"
	"clubreg/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func Login(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedLogin").(*struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var admin models.Admin
	if err := database.Database.Db.Where("email = ? AND is_deleted = ?", reqData.Email, false).First(&admin).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(reqData.Password)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid credentials!", nil)
	}

	token, err := middleware.GenerateJWT(admin.ID, admin.Name, admin.Email)
	if err != nil {
		log.Printf("Error generating JWT: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	admin.LastLogin = time.Now()
	if err := database.Database.Db.Save(&admin).Error; err != nil {
		log.Printf("Error updating last login: %v", err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful.", fiber.Map{
		"token": token,
		"admin": fiber.Map{
			"id":    admin.ID,
			"name":  admin.Name,
			"email": admin.Email,
		},
	})
}

// CreateAdmin registers another admin account. Only a logged-in admin can
// create one.
func CreateAdmin(c *fiber.Ctx) error {
	if _, ok := c.Locals("adminId").(uint); !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData := new(struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	})
	if err := c.BodyParser(reqData); err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
	}
	if reqData.Email == "" || reqData.Name == "" || reqData.Password == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Name, email and password are required!", nil)
	}

	db := database.Database.Db

	if err := db.Where("email = ?", reqData.Email).First(&models.Admin{}).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Email is already registered!", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), config.AppConfig.SaltRound)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to process your request!", nil)
	}

	newAdmin := models.Admin{
		Name:     reqData.Name,
		Email:    reqData.Email,
		Password: string(hashedPassword),
	}
	if err := db.Create(&newAdmin).Error; err != nil {
		log.Printf("Error saving admin to database: %v", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create admin!", nil)
	}

	newAdmin.Password = ""
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Admin registered successfully.", newAdmin)
}
