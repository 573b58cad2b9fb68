package main

import (
	"TailorScan/internal/api/scan"
	"TailorScan/pkg/anthro"
	logPkg "TailorScan/pkg/log"
	"TailorScan/pkg/pose"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// scanpipe runs the measurement pipeline on a capture device: landmarks in,
// measurements out, optionally submitted to the gateway under a link code.
type options struct {
	frontPath    string
	sidePath     string
	useLandmarks bool
	heightCm     float64
	gender       string
	threshold    float64
	poseURL      string
	linkCode     string
	gatewayURL   string
	acceptAnyway bool
	guestName    string
	guestPhone   string
	guestGender  string
}

func main() {
	logger := logPkg.NewLogger()
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.frontPath, "front", "", "front view input file (image, or landmark JSON with -landmarks)")
	flag.StringVar(&opts.sidePath, "side", "", "optional side view input file")
	flag.BoolVar(&opts.useLandmarks, "landmarks", false, "inputs are landmark JSON files, skip the pose detector")
	flag.Float64Var(&opts.heightCm, "height", 0, "subject height in centimeters")
	flag.StringVar(&opts.gender, "gender", "", "subject gender (male or female)")
	flag.Float64Var(&opts.threshold, "threshold", 0, "confidence threshold override (default SCAN_CONFIDENCE_THRESHOLD or 0.70)")
	flag.StringVar(&opts.poseURL, "pose-url", "", "pose sidecar URL (default POSE_DETECTION_URL)")
	flag.StringVar(&opts.linkCode, "link", "", "scan link code; when set, the result is submitted to the gateway")
	flag.StringVar(&opts.gatewayURL, "gateway", "", "gateway base URL (default SCAN_GATEWAY_URL or http://localhost:3000)")
	flag.BoolVar(&opts.acceptAnyway, "accept-anyway", false, "submit even when the result needs review")
	flag.StringVar(&opts.guestName, "guest-name", "", "guest name for quick scan sessions")
	flag.StringVar(&opts.guestPhone, "guest-phone", "", "guest phone for quick scan sessions")
	flag.StringVar(&opts.guestGender, "guest-gender", "", "guest gender for quick scan sessions")
	flag.Parse()

	if opts.frontPath == "" || opts.heightCm == 0 || opts.gender == "" {
		flag.Usage()
		os.Exit(2)
	}
	if opts.gatewayURL == "" {
		opts.gatewayURL = os.Getenv("SCAN_GATEWAY_URL")
	}
	if opts.gatewayURL == "" {
		opts.gatewayURL = "http://localhost:3000"
	}
	opts.gatewayURL = strings.TrimRight(opts.gatewayURL, "/")

	client := &gatewayClient{base: opts.gatewayURL, http: &http.Client{Timeout: 15 * time.Second}, log: logger}

	front, side, err := acquireLandmarks(logger, opts)
	if err != nil {
		logger.Errorf("Landmark acquisition failed: %v", err)
		if opts.linkCode != "" {
			client.reportFailure(opts.linkCode, fmt.Sprintf("landmark acquisition failed: %v", err))
		}
		os.Exit(1)
	}

	est, err := anthro.EstimateMeasurements(anthro.Input{
		Front:    front,
		Side:     side,
		HeightCm: opts.heightCm,
		Gender:   opts.gender,
	})
	if err != nil {
		logger.Errorf("Estimation failed: %v", err)
		if opts.linkCode != "" {
			client.reportFailure(opts.linkCode, fmt.Sprintf("estimation failed: %v", err))
		}
		os.Exit(1)
	}

	gate := anthro.NewGateFromEnv()
	if opts.threshold > 0 {
		gate = anthro.NewGate(opts.threshold)
	}
	decision := gate.Evaluate(est)

	printResult(est, decision)

	if opts.linkCode == "" {
		return
	}

	if decision.Outcome == anthro.OutcomeNeedsReview && !opts.acceptAnyway {
		logger.WithFields(logrus.Fields{
			"confidence": est.Confidence,
			"threshold":  decision.Threshold,
		}).Warn("Result needs review, not submitting (use -accept-anyway to override)")
		os.Exit(3)
	}

	if err := client.submit(opts, est, decision); err != nil {
		logger.Errorf("Submission failed: %v", err)
		os.Exit(1)
	}

	logger.Info("Measurements submitted")
}

func acquireLandmarks(logger *logrus.Logger, opts options) (*pose.LandmarkSet, *pose.LandmarkSet, error) {
	if opts.useLandmarks {
		front, err := pose.LoadLandmarkSet(opts.frontPath)
		if err != nil {
			return nil, nil, err
		}
		var side *pose.LandmarkSet
		if opts.sidePath != "" {
			side, err = pose.LoadLandmarkSet(opts.sidePath)
			if err != nil {
				return nil, nil, err
			}
		}
		return front, side, nil
	}

	provider := pose.NewWebSocketProvider(opts.poseURL)
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	frontImage, err := os.ReadFile(opts.frontPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading front image: %w", err)
	}
	front, err := provider.Detect(ctx, frontImage, pose.ViewFront)
	if err != nil {
		return nil, nil, err
	}

	var side *pose.LandmarkSet
	if opts.sidePath != "" {
		sideImage, err := os.ReadFile(opts.sidePath)
		if err != nil {
			return nil, nil, fmt.Errorf("error reading side image: %w", err)
		}
		side, err = provider.Detect(ctx, sideImage, pose.ViewSide)
		if err != nil {
			// The side view only refines girths; a scan works without it.
			logger.Warnf("Side view detection failed, continuing with front only: %v", err)
			side = nil
		}
	}

	return front, side, nil
}

func printResult(est *anthro.MeasurementEstimate, decision anthro.Decision) {
	out := struct {
		Measurements map[string]float64 `json:"measurements"`
		Provenance   map[string]string  `json:"provenance"`
		Missing      []string           `json:"missing,omitempty"`
		Confidence   float64            `json:"confidence"`
		Decision     anthro.Decision    `json:"decision"`
	}{
		Measurements: est.MeasurementMap(),
		Provenance:   est.ProvenanceMap(),
		Missing:      est.Missing,
		Confidence:   est.Confidence,
		Decision:     decision,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(out)
}

type gatewayClient struct {
	base string
	http *http.Client
	log  *logrus.Logger
}

func (g *gatewayClient) submit(opts options, est *anthro.MeasurementEstimate, decision anthro.Decision) error {
	g.start(opts.linkCode)

	req := scan.SubmitMeasurementsRequest{
		HeightCm:       opts.heightCm,
		Gender:         opts.gender,
		Measurements:   est.MeasurementMap(),
		Confidence:     est.Confidence,
		Provenance:     est.ProvenanceMap(),
		AcceptedAnyway: decision.Outcome == anthro.OutcomeNeedsReview && opts.acceptAnyway,
		GuestName:      opts.guestName,
		GuestPhone:     opts.guestPhone,
		GuestGender:    opts.guestGender,
	}

	var res scan.SubmitScanResponse
	if err := g.post("/api/v1/scan/"+opts.linkCode, req, &res); err != nil {
		return err
	}

	g.log.WithFields(logrus.Fields{
		"status":     res.Status,
		"confidence": res.Confidence,
	}).Info("Gateway accepted submission")
	return nil
}

func (g *gatewayClient) start(linkCode string) {
	hostname, _ := os.Hostname()
	if err := g.post("/api/v1/scan/"+linkCode+"/start", scan.StartScanRequest{DeviceRef: hostname}, nil); err != nil {
		g.log.Warnf("Start notification failed: %v", err)
	}
}

func (g *gatewayClient) reportFailure(linkCode string, reason string) {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	if err := g.post("/api/v1/scan/"+linkCode+"/fail", scan.FailScanRequest{Reason: reason}, nil); err != nil {
		g.log.Warnf("Failure report did not reach the gateway: %v", err)
	}
}

func (g *gatewayClient) post(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := g.http.Post(g.base+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var gatewayErr struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Code    string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&gatewayErr); err == nil {
			message := gatewayErr.Message
			if message == "" {
				message = gatewayErr.Error
			}
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, message)
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
