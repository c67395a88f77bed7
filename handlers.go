package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"caregpt-mind/internal/middleware"
	"caregpt-mind/internal/schedule"
	"caregpt-mind/internal/store"
	"caregpt-mind/pkg/models"

	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, schedule.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("❌ Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// alarmFromRequest decodes the wire shape into a validated-ready Alarm.
// Validation itself happens in the synchronizer, before any side effect.
func alarmFromRequest(userID string, req models.ScheduleRequest) (schedule.Alarm, error) {
	alarm := schedule.Alarm{
		UserID:   userID,
		Title:    req.Title,
		IsActive: req.IsActive,
		Kind:     schedule.KindAlarm,
		Date:     req.Date,
	}
	if req.Type != "" {
		alarm.Kind = schedule.Kind(req.Type)
	}
	if req.Time != "" {
		tod, err := schedule.ParseTimeOfDay(req.Time)
		if err != nil {
			return schedule.Alarm{}, err
		}
		alarm.Time = tod
	}
	if len(req.Days) > 0 {
		days, err := schedule.ParseWeekdays(req.Days)
		if err != nil {
			return schedule.Alarm{}, err
		}
		alarm.Days = days
	}
	return alarm, nil
}

func syncReport(res *schedule.SyncResult) models.SyncReport {
	report := models.SyncReport{Armed: []models.ArmReport{}}
	for _, a := range res.Armed {
		item := models.ArmReport{Day: a.Key.Day.String(), At: a.At}
		if a.Err != nil {
			item.Error = a.Err.Error()
		}
		report.Armed = append(report.Armed, item)
	}
	for _, c := range res.Cancelled {
		if c.Err == nil {
			report.Cancelled++
		} else {
			report.Errors = append(report.Errors, c.Err.Error())
		}
	}
	for _, a := range res.Armed {
		if a.Err != nil {
			report.Errors = append(report.Errors, a.Err.Error())
		}
	}
	return report
}

// updateFields maps a validated alarm onto the stored document field names
// shared by both store backends. The canonical forms go into the store, not
// the raw request strings, so a later scan always parses what was written.
func updateFields(updated schedule.Alarm) map[string]interface{} {
	fields := map[string]interface{}{
		"title":    updated.Title,
		"time":     updated.Time.String(),
		"isActive": updated.IsActive,
		"type":     string(updated.Kind),
	}
	if len(updated.Days) > 0 {
		fields["days"] = schedule.WeekdayNames(updated.Days)
	}
	if updated.Date != "" {
		fields["date"] = updated.Date
	}
	return fields
}

// --- SCHEDULES ---

func listSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	alarms, err := dataStore.ListSchedules(r.Context(), middleware.UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if alarms == nil {
		alarms = []schedule.Alarm{}
	}
	writeJSON(w, http.StatusOK, alarms)
}

func createScheduleHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)

	var req models.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	alarm, err := alarmFromRequest(userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := alarm.Validate(); err != nil {
		writeError(w, err)
		return
	}

	id, err := dataStore.SaveSchedule(r.Context(), userID, alarm)
	if err != nil {
		writeError(w, err)
		return
	}
	alarm.ID = id
	alarm.CreatedAt = time.Now().UTC()

	res, err := syncer.OnSave(r.Context(), alarm)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"schedule": alarm,
		"sync":     syncReport(res),
	})
}

func updateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	id := mux.Vars(r)["id"]

	var req models.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	old, err := dataStore.GetSchedule(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := alarmFromRequest(userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	updated.ID = old.ID
	updated.CreatedAt = old.CreatedAt
	if err := updated.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := dataStore.UpdateSchedule(r.Context(), userID, id, updateFields(updated)); err != nil {
		writeError(w, err)
		return
	}

	res, err := syncer.OnEdit(r.Context(), *old, updated)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"schedule": updated,
		"sync":     syncReport(res),
	})
}

func toggleScheduleHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	id := mux.Vars(r)["id"]

	var req models.ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	alarm, err := dataStore.GetSchedule(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := dataStore.UpdateSchedule(r.Context(), userID, id, map[string]interface{}{"isActive": req.Active}); err != nil {
		writeError(w, err)
		return
	}

	res, err := syncer.OnToggle(r.Context(), *alarm, req.Active)
	if err != nil {
		writeError(w, err)
		return
	}

	alarm.IsActive = req.Active
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"schedule": alarm,
		"sync":     syncReport(res),
	})
}

func deleteScheduleHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r)
	id := mux.Vars(r)["id"]

	// Disarm first: a delete that fails halfway must not leave firings
	// pointing at a record that is about to disappear.
	res, err := syncer.OnDelete(r.Context(), schedule.Alarm{ID: id, UserID: userID})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := dataStore.DeleteSchedule(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sync": syncReport(res)})
}

// --- DEVICE TOKEN ---

func deviceTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	if err := dataStore.SetDeviceToken(r.Context(), middleware.UserID(r), req.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

// --- CHAT ---

func chatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	reply, err := chatService.Send(r.Context(), middleware.UserID(r), req.ConversationID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply})
}

func listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	conversations, err := dataStore.ListConversations(r.Context(), middleware.UserID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if conversations == nil {
		conversations = []store.Conversation{}
	}
	writeJSON(w, http.StatusOK, conversations)
}

func createConversationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	id, err := dataStore.CreateConversation(r.Context(), middleware.UserID(r), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func deleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	if err := dataStore.DeleteConversation(r.Context(), middleware.UserID(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := dataStore.Messages(r.Context(), middleware.UserID(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// --- STATUS ---

func statsHandler(w http.ResponseWriter, r *http.Request) {
	storeOK := false
	if dataStore != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		storeOK = dataStore.Ping(ctx) == nil
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"armed_firings": dispatcher.ArmedCount(),
		"feed_clients":  hub.ActiveClients(),
		"workers":       workerManager.Names(),
		"uptime":        formatDuration(time.Since(startTime)),
		"store_status":  storeOK,
		"timestamp":     time.Now().Unix(),
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := dataStore.Ping(ctx); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func logsHandler(w http.ResponseWriter, r *http.Request) {
	logsMutex.RLock()
	defer logsMutex.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": serverLogs})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
