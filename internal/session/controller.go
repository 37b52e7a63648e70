package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-touch/internal/alert"
	"github.com/kozaktomas/face-touch/internal/classifier"
	"github.com/kozaktomas/face-touch/internal/constants"
	"github.com/kozaktomas/face-touch/internal/embedding"
	"github.com/kozaktomas/face-touch/internal/frame"
	"github.com/sirupsen/logrus"
)

// Store is the example store used by the session.
type Store interface {
	Adder
	Classify(emb embedding.Embedding) (classifier.Result, error)
	Count() int
}

// Gate decides whether a classification result raises an alert.
type Gate interface {
	Observe(ctx context.Context, res classifier.Result) alert.Decision
}

// Recorder persists touch episodes. A touch episode is recorded when the
// alert fires or when touching starts while the alert is cooling.
type Recorder interface {
	RecordTouch(ctx context.Context, sessionID string, confidence float64, soundPlayed bool) error
}

// Options configures a Controller.
type Options struct {
	SessionID   string // generated when empty
	Burst       BurstOptions
	RunInterval time.Duration // pause between detections
}

// Controller owns the session phase and sequences training and detection.
type Controller struct {
	id          string
	burst       BurstOptions
	runInterval time.Duration

	src      frame.Source
	ext      embedding.Extractor
	store    Store
	gate     Gate
	recorder Recorder
	log      logrus.FieldLogger
	events   Broadcaster

	mu       sync.Mutex
	phase    Phase
	message  string
	touched  bool
	progress float64
	loading  bool
	training bool
	running  bool
	last     *classifier.Result
	cancel   context.CancelFunc
}

// New creates a controller in the initializing phase.
func New(opts Options, src frame.Source, ext embedding.Extractor, store Store, gate Gate, log logrus.FieldLogger) *Controller {
	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	if opts.Burst.Count <= 0 {
		opts.Burst.Count = constants.DefaultBurstSize
	}
	return &Controller{
		id:          id,
		burst:       opts.Burst,
		runInterval: opts.RunInterval,
		src:         src,
		ext:         ext,
		store:       store,
		gate:        gate,
		log:         log.WithField("session_id", id),
		phase:       PhaseInitializing,
		message:     instructions[PhaseInitializing],
	}
}

// SetRecorder attaches a touch recorder. Call before Run.
func (c *Controller) SetRecorder(r Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorder = r
}

// ID returns the session ID.
func (c *Controller) ID() string {
	return c.id
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	s := State{
		SessionID: c.id,
		Phase:     c.phase,
		Message:   c.message,
		Touched:   c.touched,
		Progress:  c.progress,
		Loading:   c.loading,
		Training:  c.training,
		Running:   c.running,
		Examples:  c.store.Count(),
	}
	if c.last != nil {
		res := *c.last
		s.LastResult = &res
	}
	return s
}

// Subscribe returns a channel of session events.
func (c *Controller) Subscribe() chan Event {
	return c.events.AddListener()
}

// Unsubscribe stops and closes a channel returned by Subscribe.
func (c *Controller) Unsubscribe(ch chan Event) {
	c.events.RemoveListener(ch)
}

// Listeners returns the number of event subscribers.
func (c *Controller) Listeners() int {
	return c.events.Listeners()
}

func (c *Controller) publishState() {
	s := c.State()
	c.events.SendEvent(Event{Type: EventState, Message: s.Message, Data: s})
}

func (c *Controller) fail(msg string, err error) {
	c.mu.Lock()
	c.message = fmt.Sprintf("%s: %v", msg, err)
	text := c.message
	c.mu.Unlock()

	c.log.WithError(err).Error(msg)
	c.events.SendEvent(Event{Type: EventError, Message: text})
}

// Initialize opens the frame source and loads the extractor. On failure the
// session stays in the initializing phase and the error is returned.
func (c *Controller) Initialize(ctx context.Context) error {
	if err := c.beginInitialize(); err != nil {
		return err
	}
	return c.initialize(ctx)
}

// InitializeAsync reserves initialization, runs it in the background and
// reports the result to done, which may be nil. Errors returned directly mean
// initialization did not start.
func (c *Controller) InitializeAsync(ctx context.Context, done func(error)) error {
	if err := c.beginInitialize(); err != nil {
		return err
	}
	go report(done, c.initialize(ctx))
	return nil
}

func report(done func(error), err error) {
	if done != nil {
		done(err)
	}
}

func (c *Controller) beginInitialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseInitializing {
		return fmt.Errorf("initialize in phase %s: %w", c.phase, ErrWrongPhase)
	}
	if c.loading {
		return ErrBusy
	}
	c.loading = true
	c.message = instructions[PhaseInitializing]
	return nil
}

func (c *Controller) initialize(ctx context.Context) error {
	err := c.open(ctx)

	c.mu.Lock()
	c.loading = false
	if err == nil {
		c.advanceLocked(PhaseTrainNotTouch)
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.log.Info("session initialized")
	c.publishState()
	return nil
}

func (c *Controller) open(ctx context.Context) error {
	if err := c.src.Open(ctx); err != nil {
		c.fail("Camera unavailable", err)
		return fmt.Errorf("open frame source: %w", err)
	}
	if err := c.ext.Load(ctx); err != nil {
		c.fail("Model failed to load", err)
		return fmt.Errorf("load extractor: %w", err)
	}
	return nil
}

func (c *Controller) advanceLocked(next Phase) {
	c.phase = next
	c.message = instructions[next]
}

// trainingPhase maps a label to the phase in which it is trained and the
// phase that follows a successful burst.
func trainingPhase(label classifier.Label) (Phase, Phase, bool) {
	switch label {
	case classifier.NotTouching:
		return PhaseTrainNotTouch, PhaseTrainTouch, true
	case classifier.Touching:
		return PhaseTrainTouch, PhaseRunning, true
	default:
		return 0, 0, false
	}
}

// Train runs the training burst for label. It is only accepted in the phase
// belonging to label and while nothing else is active. Stop cancels the burst;
// examples stored before cancellation are kept and the phase does not advance.
func (c *Controller) Train(ctx context.Context, label classifier.Label) error {
	ctx, next, err := c.beginTrain(ctx, label)
	if err != nil {
		return err
	}
	return c.train(ctx, label, next)
}

// TrainAsync reserves the burst for label, runs it in the background and
// reports the result to done, which may be nil.
func (c *Controller) TrainAsync(ctx context.Context, label classifier.Label, done func(error)) error {
	ctx, next, err := c.beginTrain(ctx, label)
	if err != nil {
		return err
	}
	go func() { report(done, c.train(ctx, label, next)) }()
	return nil
}

func (c *Controller) beginTrain(ctx context.Context, label classifier.Label) (context.Context, Phase, error) {
	want, next, ok := trainingPhase(label)
	if !ok {
		return nil, 0, fmt.Errorf("train %q: %w", label, classifier.ErrUnknownLabel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading || c.training || c.running {
		return nil, 0, ErrBusy
	}
	if c.phase != want {
		return nil, 0, fmt.Errorf("train %s in phase %s: %w", label, c.phase, ErrWrongPhase)
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.training = true
	c.progress = 0
	c.message = fmt.Sprintf("Training %s...", label)
	return ctx, next, nil
}

func (c *Controller) train(ctx context.Context, label classifier.Label, next Phase) error {
	log := c.log.WithField("label", label)
	log.WithField("count", c.burst.Count).Info("training burst started")
	c.publishState()

	start := time.Now()
	err := TrainBurst(ctx, label, c.src, c.ext, c.store, c.burst, func(done, total int) {
		c.onProgress(label, done, total)
	})
	cancelled := err != nil && ctx.Err() != nil

	c.mu.Lock()
	c.cancel()
	c.cancel = nil
	c.training = false
	switch {
	case err == nil:
		c.advanceLocked(next)
	case cancelled:
		c.message = fmt.Sprintf("Training %s cancelled. %s", label, instructions[c.phase])
	}
	c.mu.Unlock()

	switch {
	case cancelled:
		log.Info("training burst cancelled")
		c.publishState()
		return fmt.Errorf("train %s: %w", label, err)
	case err != nil:
		c.fail("Training failed", err)
		return fmt.Errorf("train %s: %w", label, err)
	}

	log.WithField("duration", time.Since(start).Round(time.Millisecond)).Info("training burst complete")
	c.publishState()
	return nil
}

func (c *Controller) onProgress(label classifier.Label, done, total int) {
	c.mu.Lock()
	c.progress = float64(done) / float64(total)
	c.message = fmt.Sprintf("[Progress: %d%%]", done*100/total)
	msg := c.message
	c.mu.Unlock()

	c.events.SendEvent(Event{
		Type:    EventProgress,
		Message: msg,
		Data:    Progress{Label: string(label), Done: done, Total: total},
	})
}

// Run starts the detection loop and blocks until ctx is cancelled, Stop is
// called or an iteration fails. Cancellation returns nil; an iteration error
// ends the loop and is returned. The phase stays running afterwards, so the
// loop may be started again.
func (c *Controller) Run(ctx context.Context) error {
	ctx, err := c.beginRun(ctx)
	if err != nil {
		return err
	}
	return c.run(ctx)
}

// RunAsync reserves the detection loop, runs it in the background and reports
// how it ended to done, which may be nil.
func (c *Controller) RunAsync(ctx context.Context, done func(error)) error {
	ctx, err := c.beginRun(ctx)
	if err != nil {
		return err
	}
	go func() { report(done, c.run(ctx)) }()
	return nil
}

func (c *Controller) beginRun(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil, ErrAlreadyRunning
	}
	if c.phase != PhaseRunning {
		return nil, fmt.Errorf("run in phase %s: %w", c.phase, ErrWrongPhase)
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.message = "Detecting face touches..."
	return ctx, nil
}

func (c *Controller) run(ctx context.Context) error {
	c.log.Info("detection loop started")
	c.publishState()

	err := c.loop(ctx)

	c.mu.Lock()
	c.cancel()
	c.cancel = nil
	c.running = false
	if err == nil {
		c.message = "Detection stopped."
	}
	c.mu.Unlock()

	if err != nil {
		c.fail("Detection failed", err)
		return err
	}
	c.log.Info("detection loop stopped")
	c.publishState()
	return nil
}

func (c *Controller) loop(ctx context.Context) error {
	wasTouched := false
	for {
		d, err := c.detect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if d.Touched && (d.Fired || !wasTouched) {
			c.record(ctx, d)
		}
		wasTouched = d.Touched

		if err := sleep(ctx, c.runInterval); err != nil {
			return nil
		}
	}
}

// detect runs one iteration: embed the current frame, classify it and feed
// the result through the gate.
func (c *Controller) detect(ctx context.Context) (alert.Decision, error) {
	f, err := c.src.Current(ctx)
	if err != nil {
		return alert.Decision{}, fmt.Errorf("read frame: %w", err)
	}
	emb, err := c.ext.Embed(ctx, f)
	if err != nil {
		return alert.Decision{}, fmt.Errorf("embed frame: %w", err)
	}
	res, err := c.store.Classify(emb)
	if err != nil {
		return alert.Decision{}, fmt.Errorf("classify frame: %w", err)
	}

	d := c.gate.Observe(ctx, res)

	c.mu.Lock()
	c.touched = d.Touched
	c.last = &res
	c.mu.Unlock()

	det := Detection{
		Label:       string(res.Label),
		Confidences: make(map[string]float64, len(res.Confidences)),
		Confidence:  d.Confidence,
		Touched:     d.Touched,
		Fired:       d.Fired,
	}
	for label, conf := range res.Confidences {
		det.Confidences[string(label)] = conf
	}
	c.events.SendEvent(Event{Type: EventDetection, Data: det})

	if d.Fired {
		c.log.WithField("confidence", d.Confidence).Warn("face touch alert")
		if missed := c.events.SendEvent(Event{Type: EventAlert, Message: "Touching face", Data: det}); missed > 0 {
			c.log.WithField("listeners", missed).Warn("alert event dropped for slow listener")
		}
	}
	return d, nil
}

func (c *Controller) record(ctx context.Context, d alert.Decision) {
	c.mu.Lock()
	r := c.recorder
	c.mu.Unlock()
	if r == nil {
		return
	}
	if err := r.RecordTouch(ctx, c.id, d.Confidence, d.Fired); err != nil && !errors.Is(err, context.Canceled) {
		c.log.WithError(err).Warn("failed to record touch")
	}
}

// Stop cancels the active training burst or detection loop. It reports
// whether anything was running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}
