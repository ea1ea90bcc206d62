package ui

// Selectors for the Showdown client. Kept in one place since the client's
// markup shifts between releases.
const (
	SelBattle         = ".battle"
	SelLeftBar        = ".leftbar"
	SelRightBar       = ".rightbar"
	SelTrainer        = ".trainer"
	SelCombatantIcon  = ".pokemonicon"
	SelSelfReadout    = ".statbar.rstatbar"
	SelOppReadout     = ".statbar.lstatbar"
	SelHealthText     = ".hptext"
	SelControls       = ".battle-controls"
	SelMoveMenu       = ".movemenu"
	SelSwitchMenu     = ".switchmenu"
	SelButton         = "button"
	SelTooltip        = "#tooltipwrapper"
	SelTooltipTitle   = "h2"
	SelWhatDo         = ".whatdo"
	SelAltFormToggle  = `input[name="megaevo"]`
	SelSearchGroup    = `button[name="showSearchGroup"]`
	SelSearch         = `button[name="search"]`
	SelCancelSearch   = `button[name="cancelSearch"]`
	SelSetTimer       = `button[name="setTimer"]`
	SelSaveReplay     = `button[name="saveReplay"]`
	SelOverlay        = ".ps-overlay"
	SelOverlayClose   = `button[name="close"]`
	SelCloseButton    = ".closebutton"
	SelHomeTab        = `[href="/"].button.roomtab`
	SelLogin          = `button[name="login"]`
	SelPopup          = ".ps-popup"
	SelUsername       = `input[name="username"].textbox`
	SelPassword       = `input[type="password"].textbox`
	SelSubmit         = `button[type="submit"]`
	SelSoundOptions   = `[name="openSounds"]`
	SelMuted          = `input[name="muted"]`
	SelTeambuilder    = `button[value="teambuilder"].button`
	SelNewTeam        = `button[name="newTop"].button`
	SelImport         = `button[name="import"].button`
	SelTeamText       = ".teamedit textarea"
	SelTeamName       = "input.teamnameedit"
	SelSaveImport     = `button[name='saveImport'].savebutton`
	SelBack           = `button[name='back']`
	SelFormatSelect   = `button[name="format"].select.formatselect`
	SelTeamFormatSel  = `button[name="format"].select.formatselect.teambuilderformatselect`
	SelList           = "ul"
	SelListItem       = "li"
	LeadSelectionText = "How will you start the battle?"
)

// Control names and attributes read off battle buttons.
const (
	AttrName        = "name"
	AttrMoveCode    = "data-move"
	AttrTitle       = "title"
	NameChooseMove  = "chooseMove"
	NameSwitch      = "chooseSwitch"
	NameTeamPreview = "chooseTeamPreview"
)
