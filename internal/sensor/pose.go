package sensor

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/spotlab/internal/dynamo"
)

var (
	ErrSourceClosed = errors.New("sensor: source closed")
	ErrJoinTimeout  = errors.New("sensor: worker did not exit in time")
	ErrShortFrame   = errors.New("sensor: truncated frame")
)

const (
	DefaultPollTimeout = time.Second
	// mmPerM converts tracker millimetres to metres.
	mmPerM = 1000.0
)

// DefaultTrackerIDs are the rigid-body ids configured on the tracker.
var DefaultTrackerIDs = map[dynamo.Platform]int{
	dynamo.Chaser:   0,
	dynamo.Target:   2,
	dynamo.Obstacle: 3,
}

// RigidBody is one tracked body in a frame. Pose is x, y, z in millimetres
// followed by the orientation quaternion q0..q3.
type RigidBody struct {
	ID   int
	Cond float32
	Pose [7]float64
}

// Frame is one motion-capture update.
type Frame struct {
	Bodies []RigidBody
}

// PoseSource delivers tracker frames. Next waits at most timeout and reports
// ok=false when nothing arrived.
type PoseSource interface {
	Next(timeout time.Duration) (f Frame, ok bool, err error)
	Close() error
}

// Snapshot is the latest estimate for one body.
type Snapshot struct {
	State dynamo.State
	At    time.Time
	Seq   uint64
}

type sample struct {
	x, y, yaw float64 // mm, mm, rad
	at        time.Time
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	IDs         map[dynamo.Platform]int
	PollTimeout time.Duration
	// Now stamps each frame on arrival.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Tracker follows rigid bodies on a PoseSource and derives their velocities.
type Tracker struct {
	src    PoseSource
	cfg    TrackerConfig
	byID   map[int]dynamo.Platform
	log    zerolog.Logger
	prev   map[dynamo.Platform]sample
	frames uint64

	mu     sync.Mutex
	latest map[dynamo.Platform]Snapshot

	updated chan struct{}
	quit    chan struct{}
	done    chan struct{}
}

func NewTracker(src PoseSource, cfg TrackerConfig) *Tracker {
	if cfg.IDs == nil {
		cfg.IDs = DefaultTrackerIDs
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	byID := make(map[int]dynamo.Platform, len(cfg.IDs))
	for p, id := range cfg.IDs {
		byID[id] = p
	}
	return &Tracker{
		src:     src,
		cfg:     cfg,
		byID:    byID,
		log:     cfg.Logger.With().Str("component", "tracker").Logger(),
		prev:    make(map[dynamo.Platform]sample),
		latest:  make(map[dynamo.Platform]Snapshot),
		updated: make(chan struct{}, 1),
	}
}

// Start launches the acquisition goroutine.
func (t *Tracker) Start() {
	if t.done != nil {
		return
	}
	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(t.quit, t.done)
	t.log.Info().Dur("poll_timeout", t.cfg.PollTimeout).Msg("tracker started")
}

// Stop ends acquisition and waits up to timeout for the goroutine to exit.
func (t *Tracker) Stop(timeout time.Duration) error {
	if t.done == nil {
		return nil
	}
	select {
	case <-t.quit:
	default:
		close(t.quit)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.done:
		t.log.Info().Uint64("frames", t.frames).Msg("tracker stopped")
		return nil
	case <-timer.C:
		t.log.Warn().Dur("timeout", timeout).Msg("tracker did not stop in time")
		return ErrJoinTimeout
	}
}

// Get returns a copy of the latest snapshot for p.
func (t *Tracker) Get(p dynamo.Platform) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.latest[p]
	return s, ok
}

// Latest returns a copy of every snapshot.
func (t *Tracker) Latest() map[dynamo.Platform]Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[dynamo.Platform]Snapshot, len(t.latest))
	for k, v := range t.latest {
		out[k] = v
	}
	return out
}

// Updated receives a value after a frame produced at least one new snapshot.
// Notifications coalesce; a slow reader sees one pending signal.
func (t *Tracker) Updated() <-chan struct{} { return t.updated }

func (t *Tracker) run(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-quit:
			return
		default:
		}

		f, ok, err := t.src.Next(t.cfg.PollTimeout)
		if err != nil {
			if errors.Is(err, ErrSourceClosed) {
				t.log.Info().Msg("pose source closed")
				return
			}
			t.log.Warn().Err(err).Msg("pose read failed")
			continue
		}
		if !ok {
			continue
		}
		t.ingest(f, t.cfg.Now())
	}
}

// ingest converts the accepted bodies of a frame into snapshots.
func (t *Tracker) ingest(f Frame, at time.Time) {
	t.frames++
	fresh := false
	for _, b := range f.Bodies {
		if b.Cond <= 0 {
			continue
		}
		p, ok := t.byID[b.ID]
		if !ok {
			continue
		}

		cur := sample{
			x:   b.Pose[0],
			y:   b.Pose[1],
			yaw: Yaw(b.Pose[3], b.Pose[4], b.Pose[5], b.Pose[6]),
			at:  at,
		}
		s := dynamo.State{X: cur.x / mmPerM, Y: cur.y / mmPerM, Yaw: cur.yaw}
		if prev, seen := t.prev[p]; seen {
			if dt := cur.at.Sub(prev.at).Seconds(); dt > 0 {
				s.VX = (cur.x - prev.x) / dt / mmPerM
				s.VY = (cur.y - prev.y) / dt / mmPerM
				s.YawRate = dynamo.WrapAngle(cur.yaw-prev.yaw) / dt
			}
		}
		t.prev[p] = cur

		t.mu.Lock()
		seq := t.latest[p].Seq + 1
		t.latest[p] = Snapshot{State: s, At: at, Seq: seq}
		t.mu.Unlock()
		fresh = true
	}

	if fresh {
		select {
		case t.updated <- struct{}{}:
		default:
		}
	}
}
