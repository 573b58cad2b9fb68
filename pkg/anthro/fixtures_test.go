package anthro

import (
	"math"

	"TailorScan/pkg/pose"
)

const testVisibility = 0.9

// testFrontSet builds a synthetic upright subject with the head at y=100
// and the ankles at y=600, so a stated height of 170cm calibrates to an
// exact scale of 0.34 cm per pixel.
func testFrontSet() *pose.LandmarkSet {
	points := map[string]pose.Landmark{
		pose.PointTopHead:       {X: 300, Y: 100, Visibility: testVisibility},
		pose.PointLeftShoulder:  {X: 250, Y: 200, Visibility: testVisibility},
		pose.PointRightShoulder: {X: 350, Y: 200, Visibility: testVisibility},
		pose.PointLeftElbow:     {X: 240, Y: 280, Visibility: testVisibility},
		pose.PointRightElbow:    {X: 360, Y: 280, Visibility: testVisibility},
		pose.PointLeftWrist:     {X: 230, Y: 360, Visibility: testVisibility},
		pose.PointRightWrist:    {X: 370, Y: 360, Visibility: testVisibility},
		pose.PointLeftHip:       {X: 260, Y: 350, Visibility: testVisibility},
		pose.PointRightHip:      {X: 340, Y: 350, Visibility: testVisibility},
		pose.PointLeftKnee:      {X: 255, Y: 470, Visibility: testVisibility},
		pose.PointRightKnee:     {X: 345, Y: 470, Visibility: testVisibility},
		pose.PointLeftAnkle:     {X: 250, Y: 600, Visibility: testVisibility},
		pose.PointRightAnkle:    {X: 350, Y: 600, Visibility: testVisibility},
	}
	extents := []struct {
		level       string
		left, right float64
		y           float64
	}{
		{pose.LevelNeck, 280, 320, 210},
		{pose.LevelChest, 240, 360, 250},
		{pose.LevelBust, 245, 355, 260},
		{pose.LevelWaist, 255, 345, 330},
		{pose.LevelHip, 240, 360, 370},
		{pose.LevelThigh, 270, 330, 430},
		{pose.LevelKnee, 275, 325, 470},
		{pose.LevelCalf, 278, 322, 520},
		{pose.LevelWrist, 222, 238, 360},
		{pose.LevelAnkle, 242, 258, 600},
	}
	for _, e := range extents {
		leftName, rightName := pose.WidthPair(e.level)
		points[leftName] = pose.Landmark{X: e.left, Y: e.y, Visibility: testVisibility}
		points[rightName] = pose.Landmark{X: e.right, Y: e.y, Visibility: testVisibility}
	}
	return &pose.LandmarkSet{
		View:        pose.ViewFront,
		ImageWidth:  600,
		ImageHeight: 1000,
		Points:      points,
	}
}

// testSideSet is the matching profile view, same 500px subject height so
// both views calibrate to the same scale.
func testSideSet() *pose.LandmarkSet {
	points := map[string]pose.Landmark{
		pose.PointTopHead:    {X: 300, Y: 100, Visibility: testVisibility},
		pose.PointLeftAnkle:  {X: 298, Y: 600, Visibility: testVisibility},
		pose.PointRightAnkle: {X: 302, Y: 600, Visibility: testVisibility},
	}
	depths := []struct {
		level       string
		front, back float64
		y           float64
	}{
		{pose.LevelNeck, 281, 319, 210},
		{pose.LevelChest, 258, 342, 250},
		{pose.LevelBust, 257, 343, 260},
		{pose.LevelWaist, 270, 330, 330},
		{pose.LevelHip, 258, 342, 370},
		{pose.LevelThigh, 272, 328, 430},
		{pose.LevelKnee, 275, 325, 470},
		{pose.LevelCalf, 279, 321, 520},
		{pose.LevelWrist, 294, 306, 360},
		{pose.LevelAnkle, 294, 306, 600},
	}
	for _, d := range depths {
		frontName, backName := pose.DepthPair(d.level)
		points[frontName] = pose.Landmark{X: d.front, Y: d.y, Visibility: testVisibility}
		points[backName] = pose.Landmark{X: d.back, Y: d.y, Visibility: testVisibility}
	}
	return &pose.LandmarkSet{
		View:        pose.ViewSide,
		ImageWidth:  600,
		ImageHeight: 1000,
		Points:      points,
	}
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
