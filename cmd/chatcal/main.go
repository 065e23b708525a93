package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatcal/chatcal/internal/auth"
	"github.com/chatcal/chatcal/internal/config"
	"github.com/chatcal/chatcal/internal/store"
	"github.com/chatcal/chatcal/internal/sync"

	"golang.org/x/oauth2"
)

func printHelp() {
	fmt.Fprintf(os.Stderr, `chatcal - shared event to personal calendar bridge

Lets members of a chat community register their Google Calendar account,
announce shared events, and copy announced events into their own calendars.
The chat gateway drives the engine; this binary provides the wiring plus
local administrative flows.

USAGE:
    %s [OPTIONS]

OPTIONS:
    -h, --help                    Show this help message and exit
    --config FILE                 Path to JSON config file (optional)
                                  All settings can be specified in the config file
    --data-dir DIR                Directory holding the state files and per-user
                                  credential blobs (overrides config file and
                                  CHATCAL_DATA_DIR env var)
    --google-credentials-path PATH Path to Google OAuth credentials JSON file
                                  (overrides config file and GOOGLE_CREDENTIALS_PATH env var)
    --owner-id ID                 Local user id of the community owner
                                  (overrides config file and CHATCAL_OWNER_ID env var)
    --utc-offset-minutes N        Fixed UTC offset all events are announced in
                                  (default: -480, overrides config file and
                                  CHATCAL_UTC_OFFSET_MINUTES env var)
    --callback-addr ADDR          Listen address for the OAuth consent callback
                                  (default: "127.0.0.1:8080", overrides config file
                                  and CHATCAL_CALLBACK_ADDR env var)

ACTIONS (pick one; default prints store status):
    --serve                       Run the OAuth consent callback server until
                                  interrupted, completing gateway-driven
                                  registrations
    --register USER               Run the interactive consent flow for USER
    --display-name NAME           Display name recorded with --register
    --unregister USER             Remove USER's registration and credential
    --links USER                  List the calendar copies recorded for USER
    --export EVENT_ID             Print the shared event in iCalendar form

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables
    3. Config file (--config)
    4. Defaults

CONFIG FILE:
    All settings can be specified in a JSON config file. Example:
    {
      "data_dir": "/var/lib/chatcal",
      "google_credentials_path": "/path/to/credentials.json",
      "owner_id": "100000000000000001",
      "utc_offset_minutes": -480,
      "callback_addr": "127.0.0.1:8080"
    }

    The Google credentials JSON file should be in the format downloaded from
    Google Cloud Console. It should contain either an "installed" or "web"
    section with "client_id" and "client_secret" fields.

EXAMPLES:
    # Run the callback server
    %s --config /path/to/config.json --serve

    # Register a user from this machine
    %s --config /path/to/config.json --register 100000000000000042 --display-name "ada"

    # List a user's calendar copies
    %s --config /path/to/config.json --links 100000000000000042

    # Show help
    %s --help

`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	// Parse command-line flags
	helpFlag := flag.Bool("help", false, "Show help message")
	helpFlagShort := flag.Bool("h", false, "Show help message (shorthand)")
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	dataDir := flag.String("data-dir", "", "Directory holding the state files and per-user credential blobs")
	googleCredentialsPath := flag.String("google-credentials-path", "", "Path to Google OAuth credentials JSON file")
	ownerID := flag.String("owner-id", "", "Local user id of the community owner")
	utcOffsetMinutes := flag.String("utc-offset-minutes", "", "Fixed UTC offset all events are announced in")
	callbackAddr := flag.String("callback-addr", "", "Listen address for the OAuth consent callback")
	serveFlag := flag.Bool("serve", false, "Run the OAuth consent callback server")
	registerUser := flag.String("register", "", "Run the interactive consent flow for a user")
	displayName := flag.String("display-name", "", "Display name recorded with --register")
	unregisterUser := flag.String("unregister", "", "Remove a user's registration and credential")
	linksUser := flag.String("links", "", "List the calendar copies recorded for a user")
	exportEvent := flag.String("export", "", "Print a shared event in iCalendar form")
	flag.Parse()

	// Show help if requested
	if *helpFlag || *helpFlagShort {
		printHelp()
		os.Exit(0)
	}

	// Set up logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx := context.Background()

	// Load configuration (precedence: flags > env vars > config file > defaults)
	cfg, err := config.LoadConfig(*configFile, config.Overrides{
		DataDir:               *dataDir,
		GoogleCredentialsPath: *googleCredentialsPath,
		OwnerID:               *ownerID,
		UTCOffsetMinutes:      *utcOffsetMinutes,
		CallbackAddr:          *callbackAddr,
	})
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Load Google OAuth credentials from the credentials file
	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to load Google credentials: %v", err)
	}

	googleOAuthConfig := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "http://" + cfg.CallbackAddr,
		Scopes: []string{
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/calendar.events",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	// Open the three state stores
	users, err := store.NewUserRegistry(cfg.DataDir + "/users.json")
	if err != nil {
		log.Fatalf("Failed to open user registry: %v", err)
	}
	events, err := store.NewEventStore(cfg.DataDir + "/events.json")
	if err != nil {
		log.Fatalf("Failed to open event store: %v", err)
	}
	links, err := store.NewLinkIndex(cfg.DataDir + "/links.json")
	if err != nil {
		log.Fatalf("Failed to open link index: %v", err)
	}

	engine := sync.NewEngine(cfg, googleOAuthConfig, users, events, links, sync.NoopScheduler{})

	switch {
	case *serveFlag:
		runServe(ctx, cfg, googleOAuthConfig, engine)

	case *registerUser != "":
		runRegister(ctx, cfg, googleOAuthConfig, engine, *registerUser, *displayName)

	case *unregisterUser != "":
		outcome := engine.Unregister(ctx, *unregisterUser)
		if !outcome.Ok() {
			log.Fatalf("Unregister failed (%s): %s", outcome.Status, outcome.Detail)
		}
		log.Printf("Unregistered user %s", *unregisterUser)

	case *linksUser != "":
		userLinks := engine.Links(*linksUser)
		if len(userLinks) == 0 {
			fmt.Println("No calendar copies recorded.")
			return
		}
		for _, link := range userLinks {
			fmt.Printf("%s\t%s\t%s\n", link.RemoteEventID, link.SharedEventID, link.Title)
		}

	case *exportEvent != "":
		ics, outcome := engine.ExportICS(*exportEvent)
		if !outcome.Ok() {
			log.Fatalf("Export failed (%s): %s", outcome.Status, outcome.Detail)
		}
		fmt.Print(ics)

	default:
		fmt.Printf("Registered users: %d\n", users.Count())
		fmt.Printf("Shared events:    %d\n", events.Count())
		fmt.Printf("Calendar links:   %d\n", links.Count())
	}
}

// runServe runs the consent callback server until interrupted so the chat
// gateway can hand users registration URLs at any time.
func runServe(ctx context.Context, cfg *config.Config, oauthConfig *oauth2.Config, engine *sync.Engine) {
	server := auth.NewCallbackServer(engine.Flow(), engine.CallbackHandler())
	redirectURL, err := server.Start(cfg.CallbackAddr)
	if err != nil {
		log.Fatalf("Failed to start callback server: %v", err)
	}
	oauthConfig.RedirectURL = redirectURL
	log.Printf("Callback server listening on %s", redirectURL)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: callback server shutdown: %v", err)
	}
}

// runRegister walks one user through the consent flow from this machine.
func runRegister(ctx context.Context, cfg *config.Config, oauthConfig *oauth2.Config, engine *sync.Engine, userID, displayName string) {
	server := auth.NewCallbackServer(engine.Flow(), engine.CallbackHandler())
	redirectURL, err := server.Start(cfg.CallbackAddr)
	if err != nil {
		log.Fatalf("Failed to start callback server: %v", err)
	}
	oauthConfig.RedirectURL = redirectURL
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: callback server shutdown: %v", err)
		}
	}()

	authURL, err := engine.BeginRegistration(userID, displayName)
	if err != nil {
		log.Fatalf("Failed to begin registration: %v", err)
	}

	fmt.Println("Please visit the following URL to authorize the application:")
	fmt.Println(authURL)
	fmt.Println("\nWaiting for authorization...")

	deadline := time.Now().Add(5 * time.Minute)
	for time.Now().Before(deadline) {
		if user, ok := engine.Lookup(userID); ok {
			fmt.Printf("Registered %s as %s\n", userID, user.Email)
			return
		}
		time.Sleep(time.Second)
	}

	log.Fatalf("Authorization timeout: no response received within 5 minutes")
}
