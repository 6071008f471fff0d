package lookoutcv

import (
	"fmt"
	"strings"
)

// Task selects the prediction shape a logger accepts and with it the
// mandatory record fields.
type Task string

const (
	// TaskClassification logs image, predicted class, and confidence.
	TaskClassification Task = "classification"
	// TaskDetection additionally requires a bounding box.
	TaskDetection Task = "detection"
)

// Record column names for prediction fields.
const (
	fieldImageName  = "image_name"
	fieldPredClass  = "pred_class"
	fieldConfidence = "confidence"
	fieldBBoxX1     = "bbox_x1"
	fieldBBoxY1     = "bbox_y1"
	fieldBBoxX2     = "bbox_x2"
	fieldBBoxY2     = "bbox_y2"
)

// ParseTask parses a user-provided task value. Empty means classification.
func ParseTask(raw string) (Task, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(TaskClassification):
		return TaskClassification, nil
	case string(TaskDetection):
		return TaskDetection, nil
	default:
		return "", fmt.Errorf("unknown task %q (supported: classification, detection)", raw)
	}
}

// mandatoryFields returns the record fields every prediction must carry.
func (t Task) mandatoryFields() []string {
	fields := []string{fieldImageName, fieldPredClass, fieldConfidence}
	if t == TaskDetection {
		fields = append(fields, fieldBBoxX1, fieldBBoxY1, fieldBBoxX2, fieldBBoxY2)
	}
	return fields
}
