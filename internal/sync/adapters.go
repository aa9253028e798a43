package sync

import (
	"context"
	"errors"
	"time"

	"github.com/verdantstack/agrisync/internal/farm"
)

// entityAdapter is implemented once per entity kind: ownership-scoped
// resolution, construction, partial update, removal (with tombstone), listing
// and serialization. The applier's control flow stays kind-agnostic.
type entityAdapter interface {
	kind() farm.EntityKind
	label() string
	resolveOwned(ctx context.Context, entityID, userID string) (Record, error)
	create(ctx context.Context, userID, entityID string, body payload) (Record, error)
	update(ctx context.Context, userID string, rec Record, body payload) (Record, error)
	remove(ctx context.Context, userID string, rec Record) error
	listOwnedSince(ctx context.Context, userID string, since time.Time) ([]Record, error)
	serialize(rec Record) map[string]any
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

// resolveParent maps a failed parent lookup to a validation problem. The
// reason deliberately says "not found" rather than "forbidden" so existence
// of other users' records never leaks.
func notFoundAsValidation(err error, parentLabel string) error {
	if errors.Is(err, farm.ErrNotFound) {
		return validationf("%s not found", parentLabel)
	}
	return err
}

// Plantation

type plantationAdapter struct {
	store *farm.Store
}

func (a *plantationAdapter) kind() farm.EntityKind { return farm.KindPlantation }
func (a *plantationAdapter) label() string         { return "plantation" }

func (a *plantationAdapter) resolveOwned(ctx context.Context, entityID, userID string) (Record, error) {
	plantation, err := a.store.ResolvePlantation(ctx, entityID, userID)
	if err != nil {
		return nil, err
	}
	return plantation, nil
}

func (a *plantationAdapter) create(ctx context.Context, userID, entityID string, body payload) (Record, error) {
	area, err := body.num("areaHectares")
	if err != nil {
		return nil, err
	}
	plantation := &farm.Plantation{
		ID:           entityID,
		OwnerID:      userID,
		Name:         body.str("name"),
		Region:       body.str("region"),
		AreaHectares: area,
	}
	if plantation.Name == "" {
		return nil, validationf("missing plantation name")
	}
	if err := a.store.CreatePlantation(ctx, plantation); err != nil {
		return nil, err
	}
	return plantation, nil
}

func (a *plantationAdapter) update(ctx context.Context, userID string, rec Record, body payload) (Record, error) {
	plantation := rec.(*farm.Plantation)
	if body.has("name") {
		if name := body.str("name"); name != "" {
			plantation.Name = name
		}
	}
	if body.has("region") {
		plantation.Region = body.str("region")
	}
	if body.has("areaHectares") {
		area, err := body.num("areaHectares")
		if err != nil {
			return nil, err
		}
		plantation.AreaHectares = area
	}
	if err := a.store.SavePlantation(ctx, plantation); err != nil {
		return nil, err
	}
	return plantation, nil
}

func (a *plantationAdapter) remove(ctx context.Context, userID string, rec Record) error {
	return a.store.DeletePlantation(ctx, userID, rec.(*farm.Plantation))
}

func (a *plantationAdapter) listOwnedSince(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	plantations, err := a.store.ListPlantationsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(plantations))
	for _, plantation := range plantations {
		records = append(records, plantation)
	}
	return records, nil
}

func (a *plantationAdapter) serialize(rec Record) map[string]any {
	plantation := rec.(*farm.Plantation)
	return map[string]any{
		"id":           plantation.ID,
		"name":         plantation.Name,
		"region":       plantation.Region,
		"areaHectares": plantation.AreaHectares,
		"createdAt":    formatTime(plantation.CreatedAt),
		"updatedAt":    formatTime(plantation.UpdatedAt),
	}
}

// Field

type fieldAdapter struct {
	store *farm.Store
}

func (a *fieldAdapter) kind() farm.EntityKind { return farm.KindField }
func (a *fieldAdapter) label() string         { return "field" }

func (a *fieldAdapter) resolveOwned(ctx context.Context, entityID, userID string) (Record, error) {
	field, err := a.store.ResolveField(ctx, entityID, userID)
	if err != nil {
		return nil, err
	}
	return field, nil
}

func (a *fieldAdapter) create(ctx context.Context, userID, entityID string, body payload) (Record, error) {
	plantationID := body.str("plantationId")
	if plantationID == "" {
		return nil, validationf("missing plantation id")
	}
	if _, err := a.store.ResolvePlantation(ctx, plantationID, userID); err != nil {
		return nil, notFoundAsValidation(err, "plantation")
	}

	area, err := body.num("areaHectares")
	if err != nil {
		return nil, err
	}
	field := &farm.Field{
		ID:           entityID,
		PlantationID: plantationID,
		Name:         body.str("name"),
		AreaHectares: area,
		SoilType:     body.str("soilType"),
	}
	if body.has("currentCrop") {
		crop, err := body.strPtr("currentCrop")
		if err != nil {
			return nil, err
		}
		if crop != nil && !farm.ValidCrop(*crop) {
			return nil, validationf("invalid currentCrop value")
		}
		field.CurrentCrop = crop
	}
	if err := a.store.CreateField(ctx, field); err != nil {
		return nil, err
	}
	return field, nil
}

func (a *fieldAdapter) update(ctx context.Context, userID string, rec Record, body payload) (Record, error) {
	field := rec.(*farm.Field)
	if body.has("plantationId") {
		plantationID := body.str("plantationId")
		if plantationID == "" {
			return nil, validationf("missing plantation id")
		}
		if _, err := a.store.ResolvePlantation(ctx, plantationID, userID); err != nil {
			return nil, notFoundAsValidation(err, "plantation")
		}
		field.PlantationID = plantationID
	}
	if body.has("name") {
		if name := body.str("name"); name != "" {
			field.Name = name
		}
	}
	if body.has("areaHectares") {
		area, err := body.num("areaHectares")
		if err != nil {
			return nil, err
		}
		field.AreaHectares = area
	}
	if body.has("soilType") {
		field.SoilType = body.str("soilType")
	}
	if body.has("currentCrop") {
		crop, err := body.strPtr("currentCrop")
		if err != nil {
			return nil, err
		}
		if crop != nil && !farm.ValidCrop(*crop) {
			return nil, validationf("invalid currentCrop value")
		}
		field.CurrentCrop = crop
	}
	if err := a.store.SaveField(ctx, field); err != nil {
		return nil, err
	}
	return field, nil
}

func (a *fieldAdapter) remove(ctx context.Context, userID string, rec Record) error {
	return a.store.DeleteField(ctx, userID, rec.(*farm.Field))
}

func (a *fieldAdapter) listOwnedSince(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	fields, err := a.store.ListFieldsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(fields))
	for _, field := range fields {
		records = append(records, field)
	}
	return records, nil
}

func (a *fieldAdapter) serialize(rec Record) map[string]any {
	field := rec.(*farm.Field)
	var crop any
	if field.CurrentCrop != nil {
		crop = *field.CurrentCrop
	}
	return map[string]any{
		"id":           field.ID,
		"plantationId": field.PlantationID,
		"name":         field.Name,
		"areaHectares": field.AreaHectares,
		"soilType":     field.SoilType,
		"currentCrop":  crop,
		"createdAt":    formatTime(field.CreatedAt),
		"updatedAt":    formatTime(field.UpdatedAt),
	}
}

// PlantingSeason

type seasonAdapter struct {
	store *farm.Store
}

func (a *seasonAdapter) kind() farm.EntityKind { return farm.KindPlantingSeason }
func (a *seasonAdapter) label() string         { return "planting season" }

func (a *seasonAdapter) resolveOwned(ctx context.Context, entityID, userID string) (Record, error) {
	season, err := a.store.ResolvePlantingSeason(ctx, entityID, userID)
	if err != nil {
		return nil, err
	}
	return season, nil
}

func (a *seasonAdapter) create(ctx context.Context, userID, entityID string, body payload) (Record, error) {
	fieldID := body.str("fieldId")
	if fieldID == "" {
		return nil, validationf("missing field id")
	}
	if _, err := a.store.ResolveField(ctx, fieldID, userID); err != nil {
		return nil, notFoundAsValidation(err, "field")
	}

	cropType := body.str("cropType")
	if !farm.ValidCrop(cropType) {
		return nil, validationf("invalid cropType value")
	}

	season := &farm.PlantingSeason{
		ID:                  entityID,
		FieldID:             fieldID,
		CropType:            cropType,
		PlantingDate:        body.str("plantingDate"),
		ExpectedHarvestDate: body.str("expectedHarvestDate"),
		Notes:               body.str("notes"),
	}
	if err := a.store.CreatePlantingSeason(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

func (a *seasonAdapter) update(ctx context.Context, userID string, rec Record, body payload) (Record, error) {
	season := rec.(*farm.PlantingSeason)
	if body.has("fieldId") {
		fieldID := body.str("fieldId")
		if fieldID == "" {
			return nil, validationf("missing field id")
		}
		if _, err := a.store.ResolveField(ctx, fieldID, userID); err != nil {
			return nil, notFoundAsValidation(err, "field")
		}
		season.FieldID = fieldID
	}
	if body.has("cropType") {
		cropType := body.str("cropType")
		if !farm.ValidCrop(cropType) {
			return nil, validationf("invalid cropType value")
		}
		season.CropType = cropType
	}
	if body.has("plantingDate") {
		season.PlantingDate = body.str("plantingDate")
	}
	if body.has("expectedHarvestDate") {
		season.ExpectedHarvestDate = body.str("expectedHarvestDate")
	}
	if body.has("notes") {
		season.Notes = body.str("notes")
	}
	if err := a.store.SavePlantingSeason(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

func (a *seasonAdapter) remove(ctx context.Context, userID string, rec Record) error {
	return a.store.DeletePlantingSeason(ctx, userID, rec.(*farm.PlantingSeason))
}

func (a *seasonAdapter) listOwnedSince(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	seasons, err := a.store.ListPlantingSeasonsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(seasons))
	for _, season := range seasons {
		records = append(records, season)
	}
	return records, nil
}

func (a *seasonAdapter) serialize(rec Record) map[string]any {
	season := rec.(*farm.PlantingSeason)
	return map[string]any{
		"id":                  season.ID,
		"fieldId":             season.FieldID,
		"cropType":            season.CropType,
		"plantingDate":        season.PlantingDate,
		"expectedHarvestDate": season.ExpectedHarvestDate,
		"notes":               season.Notes,
		"createdAt":           formatTime(season.CreatedAt),
		"updatedAt":           formatTime(season.UpdatedAt),
	}
}

// Activity

type activityAdapter struct {
	store *farm.Store
}

func (a *activityAdapter) kind() farm.EntityKind { return farm.KindActivity }
func (a *activityAdapter) label() string         { return "activity" }

func (a *activityAdapter) resolveOwned(ctx context.Context, entityID, userID string) (Record, error) {
	activity, err := a.store.ResolveActivity(ctx, entityID, userID)
	if err != nil {
		return nil, err
	}
	return activity, nil
}

func (a *activityAdapter) resolveSeasonRef(ctx context.Context, userID string, body payload) (*string, error) {
	seasonID, err := body.strPtr("plantingSeasonId")
	if err != nil {
		return nil, err
	}
	if seasonID == nil || *seasonID == "" {
		return nil, nil
	}
	if _, err := a.store.ResolvePlantingSeason(ctx, *seasonID, userID); err != nil {
		return nil, notFoundAsValidation(err, "planting season")
	}
	return seasonID, nil
}

func (a *activityAdapter) create(ctx context.Context, userID, entityID string, body payload) (Record, error) {
	fieldID := body.str("fieldId")
	if fieldID == "" {
		return nil, validationf("missing field id")
	}
	if _, err := a.store.ResolveField(ctx, fieldID, userID); err != nil {
		return nil, notFoundAsValidation(err, "field")
	}

	category := body.str("category")
	if !farm.ValidActivityCategory(category) {
		return nil, validationf("invalid category value")
	}

	cost, err := body.num("cost")
	if err != nil {
		return nil, err
	}
	activity := &farm.Activity{
		ID:          entityID,
		FieldID:     fieldID,
		Category:    category,
		Description: body.str("description"),
		PerformedAt: body.str("performedAt"),
		Cost:        cost,
	}
	if body.has("plantingSeasonId") {
		seasonID, err := a.resolveSeasonRef(ctx, userID, body)
		if err != nil {
			return nil, err
		}
		activity.PlantingSeasonID = seasonID
	}
	if err := a.store.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

func (a *activityAdapter) update(ctx context.Context, userID string, rec Record, body payload) (Record, error) {
	activity := rec.(*farm.Activity)
	if body.has("fieldId") {
		fieldID := body.str("fieldId")
		if fieldID == "" {
			return nil, validationf("missing field id")
		}
		if _, err := a.store.ResolveField(ctx, fieldID, userID); err != nil {
			return nil, notFoundAsValidation(err, "field")
		}
		activity.FieldID = fieldID
	}
	if body.has("plantingSeasonId") {
		seasonID, err := a.resolveSeasonRef(ctx, userID, body)
		if err != nil {
			return nil, err
		}
		activity.PlantingSeasonID = seasonID
	}
	if body.has("category") {
		category := body.str("category")
		if !farm.ValidActivityCategory(category) {
			return nil, validationf("invalid category value")
		}
		activity.Category = category
	}
	if body.has("description") {
		activity.Description = body.str("description")
	}
	if body.has("performedAt") {
		activity.PerformedAt = body.str("performedAt")
	}
	if body.has("cost") {
		cost, err := body.num("cost")
		if err != nil {
			return nil, err
		}
		activity.Cost = cost
	}
	if err := a.store.SaveActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

func (a *activityAdapter) remove(ctx context.Context, userID string, rec Record) error {
	return a.store.DeleteActivity(ctx, userID, rec.(*farm.Activity))
}

func (a *activityAdapter) listOwnedSince(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	activities, err := a.store.ListActivitiesSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(activities))
	for _, activity := range activities {
		records = append(records, activity)
	}
	return records, nil
}

func (a *activityAdapter) serialize(rec Record) map[string]any {
	activity := rec.(*farm.Activity)
	var seasonID any
	if activity.PlantingSeasonID != nil {
		seasonID = *activity.PlantingSeasonID
	}
	return map[string]any{
		"id":               activity.ID,
		"fieldId":          activity.FieldID,
		"plantingSeasonId": seasonID,
		"category":         activity.Category,
		"description":      activity.Description,
		"performedAt":      activity.PerformedAt,
		"cost":             activity.Cost,
		"createdAt":        formatTime(activity.CreatedAt),
		"updatedAt":        formatTime(activity.UpdatedAt),
	}
}

// FinancialRecord

type financialRecordAdapter struct {
	store *farm.Store
}

func (a *financialRecordAdapter) kind() farm.EntityKind { return farm.KindFinancialRecord }
func (a *financialRecordAdapter) label() string         { return "financial record" }

func (a *financialRecordAdapter) resolveOwned(ctx context.Context, entityID, userID string) (Record, error) {
	record, err := a.store.ResolveFinancialRecord(ctx, entityID, userID)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (a *financialRecordAdapter) create(ctx context.Context, userID, entityID string, body payload) (Record, error) {
	fieldID := body.str("fieldId")
	if fieldID == "" {
		return nil, validationf("missing field id")
	}
	if _, err := a.store.ResolveField(ctx, fieldID, userID); err != nil {
		return nil, notFoundAsValidation(err, "field")
	}

	recordType := body.str("recordType")
	if !farm.ValidFinancialRecordType(recordType) {
		return nil, validationf("invalid recordType value")
	}

	amount, err := body.num("amount")
	if err != nil {
		return nil, err
	}
	record := &farm.FinancialRecord{
		ID:          entityID,
		FieldID:     fieldID,
		RecordType:  recordType,
		Category:    body.str("category"),
		Amount:      amount,
		Currency:    body.str("currency"),
		RecordedAt:  body.str("recordedAt"),
		Description: body.str("description"),
	}
	if err := a.store.CreateFinancialRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (a *financialRecordAdapter) update(ctx context.Context, userID string, rec Record, body payload) (Record, error) {
	record := rec.(*farm.FinancialRecord)
	if body.has("fieldId") {
		fieldID := body.str("fieldId")
		if fieldID == "" {
			return nil, validationf("missing field id")
		}
		if _, err := a.store.ResolveField(ctx, fieldID, userID); err != nil {
			return nil, notFoundAsValidation(err, "field")
		}
		record.FieldID = fieldID
	}
	if body.has("recordType") {
		recordType := body.str("recordType")
		if !farm.ValidFinancialRecordType(recordType) {
			return nil, validationf("invalid recordType value")
		}
		record.RecordType = recordType
	}
	if body.has("category") {
		record.Category = body.str("category")
	}
	if body.has("amount") {
		amount, err := body.num("amount")
		if err != nil {
			return nil, err
		}
		record.Amount = amount
	}
	if body.has("currency") {
		record.Currency = body.str("currency")
	}
	if body.has("recordedAt") {
		record.RecordedAt = body.str("recordedAt")
	}
	if body.has("description") {
		record.Description = body.str("description")
	}
	if err := a.store.SaveFinancialRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (a *financialRecordAdapter) remove(ctx context.Context, userID string, rec Record) error {
	return a.store.DeleteFinancialRecord(ctx, userID, rec.(*farm.FinancialRecord))
}

func (a *financialRecordAdapter) listOwnedSince(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	records, err := a.store.ListFinancialRecordsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(records))
	for _, record := range records {
		out = append(out, record)
	}
	return out, nil
}

func (a *financialRecordAdapter) serialize(rec Record) map[string]any {
	record := rec.(*farm.FinancialRecord)
	return map[string]any{
		"id":          record.ID,
		"fieldId":     record.FieldID,
		"recordType":  record.RecordType,
		"category":    record.Category,
		"amount":      record.Amount,
		"currency":    record.Currency,
		"recordedAt":  record.RecordedAt,
		"description": record.Description,
		"createdAt":   formatTime(record.CreatedAt),
		"updatedAt":   formatTime(record.UpdatedAt),
	}
}

// ActivityPhoto

type photoAdapter struct {
	store *farm.Store
}

func (a *photoAdapter) kind() farm.EntityKind { return farm.KindActivityPhoto }
func (a *photoAdapter) label() string         { return "activity photo" }

func (a *photoAdapter) resolveOwned(ctx context.Context, entityID, userID string) (Record, error) {
	photo, err := a.store.ResolveActivityPhoto(ctx, entityID, userID)
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func (a *photoAdapter) create(ctx context.Context, userID, entityID string, body payload) (Record, error) {
	activityID := body.str("activityId")
	if activityID == "" {
		return nil, validationf("missing activity id")
	}
	if _, err := a.store.ResolveActivity(ctx, activityID, userID); err != nil {
		return nil, notFoundAsValidation(err, "activity")
	}

	photo := &farm.ActivityPhoto{
		ID:         entityID,
		ActivityID: activityID,
		URL:        body.str("url"),
		Caption:    body.str("caption"),
		TakenAt:    body.str("takenAt"),
	}
	if photo.URL == "" {
		return nil, validationf("missing activity photo url")
	}
	if err := a.store.CreateActivityPhoto(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

func (a *photoAdapter) update(ctx context.Context, userID string, rec Record, body payload) (Record, error) {
	photo := rec.(*farm.ActivityPhoto)
	if body.has("activityId") {
		activityID := body.str("activityId")
		if activityID == "" {
			return nil, validationf("missing activity id")
		}
		if _, err := a.store.ResolveActivity(ctx, activityID, userID); err != nil {
			return nil, notFoundAsValidation(err, "activity")
		}
		photo.ActivityID = activityID
	}
	if body.has("url") {
		if url := body.str("url"); url != "" {
			photo.URL = url
		}
	}
	if body.has("caption") {
		photo.Caption = body.str("caption")
	}
	if body.has("takenAt") {
		photo.TakenAt = body.str("takenAt")
	}
	if err := a.store.SaveActivityPhoto(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

func (a *photoAdapter) remove(ctx context.Context, userID string, rec Record) error {
	return a.store.DeleteActivityPhoto(ctx, userID, rec.(*farm.ActivityPhoto))
}

func (a *photoAdapter) listOwnedSince(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	photos, err := a.store.ListActivityPhotosSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(photos))
	for _, photo := range photos {
		records = append(records, photo)
	}
	return records, nil
}

func (a *photoAdapter) serialize(rec Record) map[string]any {
	photo := rec.(*farm.ActivityPhoto)
	return map[string]any{
		"id":         photo.ID,
		"activityId": photo.ActivityID,
		"url":        photo.URL,
		"caption":    photo.Caption,
		"takenAt":    photo.TakenAt,
		"createdAt":  formatTime(photo.CreatedAt),
		"updatedAt":  formatTime(photo.UpdatedAt),
	}
}
