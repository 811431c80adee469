package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"lead_flow_app_go/config"
	"lead_flow_app_go/db"
	"lead_flow_app_go/models"
	"lead_flow_app_go/services"

	"golang.org/x/term"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.DatabaseURL, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.User{}, &models.Session{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")
	fmt.Println()

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Printf("Role (%s, %s, %s, %s, %s): ", models.RoleAdmin, models.RoleSalesManager,
		models.RoleSalesExecutive, models.RolePaymentCoordinator, models.RolePLVCVerificator)
	role, _ := reader.ReadString('\n')
	role = strings.TrimSpace(role)

	// Get password securely
	fmt.Print("Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read password: %v", err)
	}
	fmt.Println() // New line after password input

	if name == "" || email == "" {
		log.Fatal("Name and email are required")
	}

	var existingUser models.User
	if err := db.DB.Where("email = ?", strings.ToLower(email)).First(&existingUser).Error; err == nil {
		log.Fatalf("User with email %s already exists", email)
	}

	user, err := services.CreateUser(db.DB, name, email, string(passwordBytes), role)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Name: %s\n", user.Name)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Role: %s\n", user.Role)
	fmt.Println()
	fmt.Printf("The user can now log in at %s/login\n", cfg.AppURL)
}
