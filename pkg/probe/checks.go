package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Pinger is satisfied by *sql.DB and its wrappers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Sizer reports how many venues and locations were loaded.
type Sizer interface {
	Size() (venues, locations int)
}

// Database checks that the database answers.
func Database(p Pinger) Probe {
	return Probe{
		Name:     "Database",
		Check:    p.PingContext,
		Critical: true,
	}
}

// Catalog checks that the venue catalog holds at least one venue.
func Catalog(s Sizer) Probe {
	return Probe{
		Name: "Venue Catalog",
		Check: func(context.Context) error {
			venues, locations := s.Size()
			if venues == 0 {
				return errors.New("no venues loaded")
			}
			if locations == 0 {
				return fmt.Errorf("%d venues but no locations", venues)
			}
			return nil
		},
		Critical: true,
	}
}

// StaticDir checks that the browser client has been built. The API runs without it.
func StaticDir(dir string) Probe {
	return Probe{
		Name: "Browser Client",
		Check: func(context.Context) error {
			if dir == "" {
				return errors.New("static_dir not configured")
			}
			info, err := os.Stat(dir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			return nil
		},
		Critical: false,
	}
}
