package config

import (
	"CrewChat/models"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDatabase() {
	// Получаем значения из environment variables
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	port := os.Getenv("DB_PORT")

	sslmode := os.Getenv("DB_SSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}

	log.Printf("Connecting to database: host=%s user=%s dbname=%s port=%s sslmode=%s",
		host, user, dbname, port, sslmode)

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, password, dbname, port, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("Successfully connected to database!")

	DB.AutoMigrate(&models.Message{})
}

// MembershipServiceURL возвращает адрес внешнего сервиса членства
func MembershipServiceURL() string {
	url := os.Getenv("MEMBERSHIP_SERVICE_URL")
	if url == "" {
		url = "http://localhost:8100"
	}
	return url
}

// SignalingEndpoint возвращает адрес rendezvous-сервиса сигналинга
func SignalingEndpoint() string {
	endpoint := os.Getenv("SIGNALING_ENDPOINT")
	if endpoint == "" {
		endpoint = "wss://localhost:9000/peer"
	}
	return endpoint
}

func SignalingKey() string {
	return os.Getenv("SIGNALING_KEY")
}
