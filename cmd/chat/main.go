package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"deepchat/internal/config"
	"deepchat/internal/db"
	"deepchat/internal/domain"
	"deepchat/internal/llm"
	"deepchat/internal/repository"
	"deepchat/internal/service"
)

// Cliente de terminal para conversar contra la base de datos local y el
// proveedor configurado, sin pasar por el servidor HTTP.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal(err)
	}

	userRepo := repository.NewPgUserRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	documentRepo := repository.NewPgDocumentRepository(pool)

	gateway := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTemperature, cfg.LLMMaxTokens)
	chatSvc := service.NewChatService(logger, gateway, sessionRepo, messageRepo, documentRepo, cfg.LLMContextBudget)
	sessionSvc := service.NewSessionService(sessionRepo, messageRepo)

	user, err := ensureUser(ctx, userRepo, "cli_test@example.com")
	if err != nil {
		log.Fatal(err)
	}

	sessionID, err := pickSession(ctx, reader, sessionSvc, user.ID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("---- Modo Chat (escribe 'salir' para terminar) ----")
	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			log.Fatalf("leer input: %v", err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			fmt.Println("Saliendo del chat...")
			return
		}

		fmt.Print("Asistente > ")
		result, err := chatSvc.SendStream(ctx, service.SendInput{
			UserID:    user.ID,
			SessionID: sessionID,
			Message:   text,
		}, func(delta string) error {
			fmt.Print(delta)
			return nil
		})
		fmt.Println()
		if err != nil {
			fmt.Printf("error generando respuesta: %v\n", err)
			continue
		}
		sessionID = result.SessionID
	}
}

func pickSession(ctx context.Context, reader *bufio.Reader, sessions *service.SessionService, userID string) (string, error) {
	existing, err := sessions.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(existing) == 0 {
		return "", nil
	}

	fmt.Println("Sesiones disponibles:")
	for i, s := range existing {
		fmt.Printf("[%d] %s (%d mensajes)\n", i+1, s.Title, s.MessageCount)
	}
	fmt.Println("[N] Nueva sesion")
	fmt.Print("Selecciona una sesion: ")
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)

	if choice == "" || strings.EqualFold(choice, "N") {
		return "", nil
	}
	for i := range existing {
		if choice == fmt.Sprintf("%d", i+1) {
			return existing[i].ID, nil
		}
	}
	fmt.Println("Seleccion invalida, se creara una sesion nueva.")
	return "", nil
}

func ensureUser(ctx context.Context, repo repository.UserRepository, email string) (domain.User, error) {
	u, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	u = domain.User{
		ID:        uuid.NewString(),
		Username:  "cli_test",
		Email:     email,
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}
