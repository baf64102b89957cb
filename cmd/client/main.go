// cmd/client/main.go
//
// Headless reference client. Connects, logs in, and plays a full match
// with a fixed fleet and a sweep-pattern gunner: answers incoming shots
// from its own battlefield and fires at the first untried cell when it is
// its turn. Useful as a connectivity probe and as the opponent for manual
// testing. No interactive rendering here.

package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/saltwater-games/battleship/internal/battlefield"
	"github.com/saltwater-games/battleship/internal/client"
	"github.com/saltwater-games/battleship/internal/config"
	"github.com/saltwater-games/battleship/internal/protocol"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Client
	if err := config.Parse(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	username := flag.String("username", cfg.Username, "lobby username")
	server := flag.String("server", cfg.ServerAddr, "server host:port")
	flag.Parse()
	if *username == "" {
		log.Fatal().Msg("a username is required (flag -username or env USERNAME)")
	}

	bot := &bot{username: *username}
	c := client.New(*server)
	bot.client = c
	c.OnMessage(bot.handle)
	c.OnDisconnect(func(err error) {
		log.Info().Err(err).Msg("disconnected")
		os.Exit(0)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not reach server")
	}
	if err := c.Send(protocol.Login{Username: *username}); err != nil {
		log.Fatal().Err(err).Msg("login send failed")
	}

	<-c.Done()
}

// bot holds the match state for one automated player. All fields are
// touched only from the client's receive goroutine.
type bot struct {
	client   *client.Client
	username string
	opponent string
	field    *battlefield.Battlefield
	nextX    int
	nextY    int
}

func (b *bot) handle(m protocol.Message) {
	switch msg := m.(type) {
	case protocol.LoginResult:
		if !msg.OK {
			log.Fatal().Str("reason", msg.Reason).Msg("login rejected")
		}
		log.Info().Str("username", b.username).Msg("logged in, waiting for an opponent")

	case protocol.MatchStart:
		log.Info().Str("opponent", msg.Opponent).Uint8("grid", msg.GridSize).Msg("match started")
		b.opponent = msg.Opponent
		field, err := battlefield.New(int(msg.GridSize), defaultFleet())
		if err != nil {
			log.Fatal().Err(err).Msg("fleet placement failed")
		}
		b.field = field
		for _, s := range field.Fleet() {
			x, y := s.Origin()
			b.send(protocol.PlaceShip{
				ShipID:      s.ID(),
				Class:       uint8(s.Class()),
				X:           uint8(x),
				Y:           uint8(y),
				Orientation: uint8(s.Orientation()),
			})
		}
		if msg.YouStart {
			b.fire()
		}

	case protocol.Shot:
		if b.field == nil {
			return
		}
		hit := b.field.Strike(int(msg.X), int(msg.Y))
		sunk := false
		if hit {
			for _, s := range b.field.Fleet() {
				for _, c := range s.Cells() {
					if c.X == int(msg.X) && c.Y == int(msg.Y) {
						sunk = s.Sunk()
					}
				}
			}
		}
		b.send(protocol.ShotResult{X: msg.X, Y: msg.Y, Hit: hit, Sunk: sunk})
		if b.field.Destroyed() {
			log.Info().Msg("fleet destroyed, conceding")
			b.send(protocol.GameOver{Winner: b.opponent})
			return
		}
		// answered a shot, our turn now
		b.fire()

	case protocol.ShotResult:
		if b.field == nil {
			return
		}
		b.field.RecordShotResult(int(msg.X), int(msg.Y), msg.Hit)
		log.Info().Uint8("x", msg.X).Uint8("y", msg.Y).Bool("hit", msg.Hit).Bool("sunk", msg.Sunk).Msg("shot answered")

	case protocol.GameOver:
		if msg.Winner == b.username {
			log.Info().Msg("victory")
		} else {
			log.Info().Str("winner", msg.Winner).Msg("defeat")
		}
		_ = b.client.Close()

	case protocol.Chat:
		log.Info().Str("text", msg.Text).Msg("chat")

	default:
		log.Debug().Str("kind", m.Kind().String()).Msg("ignoring message")
	}
}

// fire picks the next untried cell in sweep order and sends the shot.
func (b *bot) fire() {
	size := b.field.Length()
	for b.nextY < size {
		x, y := b.nextX, b.nextY
		b.nextX++
		if b.nextX == size {
			b.nextX, b.nextY = 0, b.nextY+1
		}
		if b.field.Shoot(x, y) {
			b.send(protocol.Shot{X: uint8(x), Y: uint8(y)})
			return
		}
	}
	log.Info().Msg("no cells left to shoot")
}

func (b *bot) send(m protocol.Message) {
	if err := b.client.Send(m); err != nil {
		log.Warn().Err(err).Msg("send failed")
	}
}

// defaultFleet is the classic five-ship lineup stacked on the left edge.
func defaultFleet() []*battlefield.Ship {
	return []*battlefield.Ship{
		battlefield.NewShip(1, battlefield.ClassBattleship, 0, 0, battlefield.Horizontal),
		battlefield.NewShip(2, battlefield.ClassCruiser, 0, 2, battlefield.Horizontal),
		battlefield.NewShip(3, battlefield.ClassFrigate, 0, 4, battlefield.Horizontal),
		battlefield.NewShip(4, battlefield.ClassSubmarine, 0, 6, battlefield.Horizontal),
		battlefield.NewShip(5, battlefield.ClassDestroyer, 0, 8, battlefield.Horizontal),
	}
}
