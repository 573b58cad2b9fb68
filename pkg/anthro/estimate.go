package anthro

import (
	"TailorScan/internal/entity"
	"TailorScan/pkg/pose"
	"math"
	"strings"
)

const (
	// minDepthVisibility gates the side-view depth pair. Below it the
	// measured depth is no better than the proportion table, so the
	// estimator prefers the table and says so in the provenance.
	minDepthVisibility = 0.5

	// depthFallbackPenalty depresses a girth's confidence when its depth
	// came from the proportion table instead of the side view.
	depthFallbackPenalty = 0.85
)

// Chain entries may name a real landmark, one of the virtual points below,
// or a sided placeholder expanded to whichever arm scored better.
const (
	virtualNeckCenter  = "neck_center"
	virtualHipCenter   = "hip_center"
	virtualWaistCenter = "waist_center"
	virtualLowerAnkle  = "lower_ankle"

	sidedPrefix = "side:"
	sideLeft    = "left"
	sideRight   = "right"
)

// linearChains maps each length measurement to the landmark chain whose
// segment lengths are summed. Arm chains go through the elbow so a bent
// arm still measures its true length.
var linearChains = map[string][]string{
	entity.MeasurementShoulderWidth: {pose.PointLeftShoulder, pose.PointRightShoulder},
	entity.MeasurementArmLength:     {sidedPrefix + "shoulder", sidedPrefix + "elbow", sidedPrefix + "wrist"},
	entity.MeasurementSleeveLength:  {virtualNeckCenter, sidedPrefix + "shoulder", sidedPrefix + "elbow", sidedPrefix + "wrist"},
	entity.MeasurementBackLength:    {virtualNeckCenter, virtualWaistCenter},
	entity.MeasurementFrontLength:   {virtualNeckCenter, virtualHipCenter},
	entity.MeasurementInseam:        {virtualHipCenter, virtualLowerAnkle},
}

// girthLevels maps each circumference measurement to the silhouette level
// whose width and depth extents feed the ellipse approximation.
var girthLevels = map[string]string{
	entity.MeasurementNeck:  pose.LevelNeck,
	entity.MeasurementChest: pose.LevelChest,
	entity.MeasurementBust:  pose.LevelBust,
	entity.MeasurementWaist: pose.LevelWaist,
	entity.MeasurementHips:  pose.LevelHip,
	entity.MeasurementThigh: pose.LevelThigh,
	entity.MeasurementKnee:  pose.LevelKnee,
	entity.MeasurementCalf:  pose.LevelCalf,
	entity.MeasurementWrist: pose.LevelWrist,
	entity.MeasurementAnkle: pose.LevelAnkle,
}

// EstimateMeasurements runs the full numeric pipeline over one attempt's
// landmark sets. It is pure: identical inputs always produce identical
// output, and measurements walk entity.MeasurementNames in a fixed order.
func EstimateMeasurements(in Input) (*MeasurementEstimate, error) {
	profile, err := ProfileFor(in.Gender)
	if err != nil {
		return nil, err
	}
	frontCal, err := Calibrate(in.Front, in.HeightCm)
	if err != nil {
		return nil, err
	}

	// The side view carries its own scale. If it cannot be calibrated the
	// girths quietly fall back to the proportion table, which is exactly
	// what happens when the view is absent altogether.
	var sideCal Calibration
	sideUsable := false
	if in.Side != nil {
		if c, calErr := Calibrate(in.Side, in.HeightCm); calErr == nil {
			sideCal = c
			sideUsable = true
		}
	}

	est := &MeasurementEstimate{Values: make(map[string]Measurement, len(entity.MeasurementNames))}
	var weightedConfidence, totalQuality float64
	for _, name := range entity.MeasurementNames {
		var m Measurement
		var ok bool
		if chain, isLinear := linearChains[name]; isLinear {
			m, ok = measureLinear(frontCal, in.Front, profile, chain)
		} else if level, isGirth := girthLevels[name]; isGirth {
			m, ok = measureGirth(frontCal, in.Front, sideCal, in.Side, sideUsable, profile, name, level)
		}
		if !ok {
			est.Missing = append(est.Missing, name)
			continue
		}
		est.Values[name] = m
		weightedConfidence += m.Quality * m.Confidence
		totalQuality += m.Quality
	}
	if totalQuality > 0 {
		est.Confidence = weightedConfidence / totalQuality
	}
	return est, nil
}

func measureLinear(cal Calibration, set *pose.LandmarkSet, profile Profile, chain []string) (Measurement, bool) {
	px, quality, ok := bestChainPixels(set, profile, chain)
	if !ok || px <= 0 {
		return Measurement{}, false
	}
	return Measurement{
		Centimeters: cal.Centimeters(px),
		Provenance:  entity.ProvenanceDerived,
		Confidence:  quality,
		Quality:     quality,
	}, true
}

func measureGirth(frontCal Calibration, front *pose.LandmarkSet, sideCal Calibration, side *pose.LandmarkSet, sideUsable bool, profile Profile, name, level string) (Measurement, bool) {
	leftName, rightName := pose.WidthPair(level)
	lp, lok := front.Point(leftName)
	rp, rok := front.Point(rightName)
	if !lok || !rok {
		return Measurement{}, false
	}
	widthCm := frontCal.Centimeters(distance(landmarkPoint(lp), landmarkPoint(rp)))
	if widthCm <= 0 {
		return Measurement{}, false
	}
	quality := math.Min(lp.Visibility, rp.Visibility)

	var depthCm float64
	measuredDepth := false
	if sideUsable {
		frontName, backName := pose.DepthPair(level)
		sf, fok := side.Point(frontName)
		sb, bok := side.Point(backName)
		if fok && bok && sf.Visibility >= minDepthVisibility && sb.Visibility >= minDepthVisibility {
			d := sideCal.Centimeters(distance(landmarkPoint(sf), landmarkPoint(sb)))
			if d > 0 {
				depthCm = d
				measuredDepth = true
				quality = math.Min(quality, math.Min(sf.Visibility, sb.Visibility))
			}
		}
	}

	provenance := entity.ProvenanceDerived
	confidence := quality
	if !measuredDepth {
		ratio, ok := profile.DepthRatio(name)
		if !ok {
			return Measurement{}, false
		}
		depthCm = widthCm * ratio
		provenance = entity.ProvenanceProportion
		confidence = quality * depthFallbackPenalty
	}

	return Measurement{
		Centimeters: ellipsePerimeter(widthCm/2, depthCm/2),
		Provenance:  provenance,
		Confidence:  confidence,
		Quality:     quality,
	}, true
}

// ellipsePerimeter approximates the perimeter of an ellipse with semi-axes
// a and b via Ramanujan: pi * (3(a+b) - sqrt((3a+b)(a+3b))).
func ellipsePerimeter(a, b float64) float64 {
	return math.Pi * (3*(a+b) - math.Sqrt((3*a+b)*(a+3*b)))
}

type point struct {
	x, y       float64
	visibility float64
}

func landmarkPoint(l pose.Landmark) point {
	return point{x: l.X, y: l.Y, visibility: l.Visibility}
}

func distance(a, b point) float64 {
	return math.Hypot(b.x-a.x, b.y-a.y)
}

func midpoint(a, b point) point {
	return point{
		x:          (a.x + b.x) / 2,
		y:          (a.y + b.y) / 2,
		visibility: math.Min(a.visibility, b.visibility),
	}
}

func lerp(a, b point, t float64) point {
	return point{
		x:          a.x + (b.x-a.x)*t,
		y:          a.y + (b.y-a.y)*t,
		visibility: math.Min(a.visibility, b.visibility),
	}
}

// resolvePoint turns a chain entry into coordinates. Virtual points carry
// the minimum visibility of the landmarks they are built from.
func resolvePoint(set *pose.LandmarkSet, profile Profile, name string) (point, bool) {
	switch name {
	case virtualNeckCenter:
		return resolveMidpoint(set, pose.PointLeftShoulder, pose.PointRightShoulder)
	case virtualHipCenter:
		return resolveMidpoint(set, pose.PointLeftHip, pose.PointRightHip)
	case virtualWaistCenter:
		neck, ok := resolvePoint(set, profile, virtualNeckCenter)
		if !ok {
			return point{}, false
		}
		hip, ok := resolvePoint(set, profile, virtualHipCenter)
		if !ok {
			return point{}, false
		}
		return lerp(neck, hip, profile.WaistLevel), true
	case virtualLowerAnkle:
		left, lok := set.Point(pose.PointLeftAnkle)
		right, rok := set.Point(pose.PointRightAnkle)
		if !lok || !rok {
			return point{}, false
		}
		lower := landmarkPoint(left)
		if right.Y > left.Y {
			lower = landmarkPoint(right)
		}
		lower.visibility = math.Min(left.Visibility, right.Visibility)
		return lower, true
	default:
		l, ok := set.Point(name)
		if !ok {
			return point{}, false
		}
		return landmarkPoint(l), true
	}
}

func resolveMidpoint(set *pose.LandmarkSet, leftName, rightName string) (point, bool) {
	left, lok := set.Point(leftName)
	right, rok := set.Point(rightName)
	if !lok || !rok {
		return point{}, false
	}
	return midpoint(landmarkPoint(left), landmarkPoint(right)), true
}

// chainPixels sums the segment lengths along a fully resolved chain and
// reports the weakest visibility seen along it.
func chainPixels(set *pose.LandmarkSet, profile Profile, chain []string) (float64, float64, bool) {
	points := make([]point, 0, len(chain))
	quality := 1.0
	for _, name := range chain {
		p, ok := resolvePoint(set, profile, name)
		if !ok {
			return 0, 0, false
		}
		if p.visibility < quality {
			quality = p.visibility
		}
		points = append(points, p)
	}
	var px float64
	for i := 1; i < len(points); i++ {
		px += distance(points[i-1], points[i])
	}
	return px, quality, true
}

// bestChainPixels measures a chain, expanding sided placeholders on both
// arms and keeping whichever side resolved with the better visibility.
// Ties go left so the choice stays deterministic.
func bestChainPixels(set *pose.LandmarkSet, profile Profile, chain []string) (float64, float64, bool) {
	if !chainIsSided(chain) {
		return chainPixels(set, profile, chain)
	}
	leftPx, leftQ, leftOK := chainPixels(set, profile, expandChain(chain, sideLeft))
	rightPx, rightQ, rightOK := chainPixels(set, profile, expandChain(chain, sideRight))
	switch {
	case leftOK && rightOK:
		if rightQ > leftQ {
			return rightPx, rightQ, true
		}
		return leftPx, leftQ, true
	case leftOK:
		return leftPx, leftQ, true
	case rightOK:
		return rightPx, rightQ, true
	default:
		return 0, 0, false
	}
}

func chainIsSided(chain []string) bool {
	for _, name := range chain {
		if strings.HasPrefix(name, sidedPrefix) {
			return true
		}
	}
	return false
}

func expandChain(chain []string, side string) []string {
	out := make([]string, len(chain))
	for i, name := range chain {
		if strings.HasPrefix(name, sidedPrefix) {
			out[i] = side + "_" + strings.TrimPrefix(name, sidedPrefix)
			continue
		}
		out[i] = name
	}
	return out
}
