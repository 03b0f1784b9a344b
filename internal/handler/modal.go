// internal/handler/modal.go
package handler

import (
	"strconv"

	"leave-status-bot/internal/models"
	"leave-status-bot/internal/service"

	"github.com/slack-go/slack"
)

const leaveRequestCallbackID = "timeoff_request"

// Block ids of the request modal. Action ids are the service field names.
const (
	blockLeaveType = "type_block"
	blockStartDate = "start_block"
	blockEndDate   = "end_block"
	blockComment   = "comment_block"
	blockOnDemand  = "on_demand_block"

	actionOnDemand = "on_demand"
)

var fieldBlocks = map[string]string{
	service.FieldLeaveType: blockLeaveType,
	service.FieldStartDate: blockStartDate,
	service.FieldEndDate:   blockEndDate,
	service.FieldComment:   blockComment,
}

// ModalState is what the user has entered so far. It survives a rebuild
// after the leave type changes.
type ModalState struct {
	LeaveTypeID string
	StartDate   string
	EndDate     string
}

// BuildLeaveRequestModal renders the request form for the given leave types
// and the field layout derived from the selected type's policy.
func BuildLeaveRequestModal(leaveTypes []models.LeaveType, state ModalState, fields service.FormFields) slack.ModalViewRequest {
	options := make([]*slack.OptionBlockObject, 0, len(leaveTypes))
	var selected *slack.OptionBlockObject
	for _, leaveType := range leaveTypes {
		value := strconv.FormatInt(leaveType.ID, 10)
		label := leaveType.Name + " " + service.EmojiFor(leaveType.Name).Glyph
		option := slack.NewOptionBlockObject(value, plainText(label), nil)
		options = append(options, option)
		if value == state.LeaveTypeID {
			selected = option
		}
	}

	typeSelect := slack.NewOptionsSelectBlockElement(slack.OptTypeStatic, plainText("Select leave type"), service.FieldLeaveType, options...)
	typeSelect.InitialOption = selected
	typeBlock := slack.NewInputBlock(blockLeaveType, plainText("Leave Type"), nil, typeSelect)
	typeBlock.DispatchAction = true

	startPicker := slack.NewDatePickerBlockElement(service.FieldStartDate)
	startPicker.InitialDate = state.StartDate
	endPicker := slack.NewDatePickerBlockElement(service.FieldEndDate)
	endPicker.InitialDate = state.EndDate

	comment := slack.NewPlainTextInputBlockElement(plainText("Add any additional details..."), service.FieldComment)
	comment.Multiline = true
	commentLabel := "Comment (optional)"
	if fields.CommentRequired {
		commentLabel = "Comment"
	}
	commentBlock := slack.NewInputBlock(blockComment, plainText(commentLabel), nil, comment)
	commentBlock.Optional = !fields.CommentRequired

	blocks := []slack.Block{
		typeBlock,
		slack.NewInputBlock(blockStartDate, plainText("Start Date"), nil, startPicker),
		slack.NewInputBlock(blockEndDate, plainText("End Date"), nil, endPicker),
		commentBlock,
	}

	if fields.ShowOnDemand {
		checkbox := slack.NewCheckboxGroupsBlockElement(actionOnDemand,
			slack.NewOptionBlockObject("true", plainText("On-demand request"), nil))
		onDemandBlock := slack.NewInputBlock(blockOnDemand, plainText("On demand"), nil, checkbox)
		onDemandBlock.Optional = true
		blocks = append(blocks, onDemandBlock)
	}

	return slack.ModalViewRequest{
		Type:       slack.VTModal,
		CallbackID: leaveRequestCallbackID,
		Title:      plainText("Request Time Off"),
		Submit:     plainText("Submit"),
		Close:      plainText("Cancel"),
		Blocks:     slack.Blocks{BlockSet: blocks},
	}
}

// readModalState extracts the entered values from a view's state.
func readModalState(view slack.View) (ModalState, service.LeaveRequestForm) {
	var state ModalState
	var form service.LeaveRequestForm
	if view.State == nil {
		return state, form
	}
	values := view.State.Values

	state.LeaveTypeID = values[blockLeaveType][service.FieldLeaveType].SelectedOption.Value
	state.StartDate = values[blockStartDate][service.FieldStartDate].SelectedDate
	state.EndDate = values[blockEndDate][service.FieldEndDate].SelectedDate

	form.LeaveTypeID = state.LeaveTypeID
	form.StartDate = state.StartDate
	form.EndDate = state.EndDate
	form.Comment = values[blockComment][service.FieldComment].Value
	form.OnDemand = len(values[blockOnDemand][actionOnDemand].SelectedOptions) > 0
	return state, form
}

func plainText(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}
