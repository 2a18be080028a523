package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"

	"groupchat/domain"
	"groupchat/repositories"
)

// Seeds a groupchat store with a few users, rooms and messages so the
// server and the inspector have something to show during development.
func main() {
	dbPath := flag.String("db", "/tmp/groupchat", "Path to badger DB")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	logger := logs.GetLoggerFromString("info")

	users, err := repositories.NewUserRepository(db)
	if err != nil {
		log.Fatal(err)
	}
	defer users.Close()

	rooms, err := repositories.NewRoomRepository(db)
	if err != nil {
		log.Fatal(err)
	}
	defer rooms.Close()

	messages, err := repositories.NewMessageRepository(db, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer messages.Close()

	general, err := rooms.EnsureDefaultRoom()
	if err != nil {
		log.Fatal(err)
	}

	alice, err := users.GetOrCreateUser("alice")
	if err != nil {
		log.Fatal(err)
	}
	bob, err := users.GetOrCreateUser("bob")
	if err != nil {
		log.Fatal(err)
	}

	for _, u := range []domain.User{alice, bob} {
		if err := rooms.JoinRoom(u.ID, general.ID, domain.RoleMember); err != nil {
			logger.Warn("Membership skipped", "user", u.Username, "error", err)
		}
	}

	samples := []domain.Message{
		{RoomID: general.ID, AuthorID: alice.ID, AuthorName: alice.Username, Content: "Hello everyone!", Language: "en"},
		{RoomID: general.ID, AuthorID: bob.ID, AuthorName: bob.Username, Content: "Hey alice, how is it going?", Language: "en"},
		{RoomID: general.ID, AuthorName: domain.AIAuthorName, Content: "Welcome to the General room.", IsAI: true, TriggeredBy: alice.Username},
	}
	for _, m := range samples {
		m.CreatedAt = time.Now().UTC()
		if _, err := messages.Append(m); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("Seeded %s: room %q, users alice/bob, %d messages\n", *dbPath, general.Name, len(samples))
}
