// internal/portal/selectors.go

// Package portal drives the MetaX credenciamento web portal: login and
// contract selection, drafts scanning, the registration form, and the
// post-save verification pass. The DOM selectors live here so screen changes
// stay a one-file fix.
package portal

// Login screen.
const (
	selLogin    = "#txtLogin"
	selPassword = "#txtSenha"
	selContract = "#comboContrato"
)

// Registration form, personal data tab.
const (
	selName        = "#nome"
	selNickname    = "#apelido"
	selFatherName  = "#nomePai"
	selMotherName  = "#nomeMae"
	selCPF         = "#cpf"
	selEducation   = "#escolaridade"
	selMarital     = "#estCivil"
	selBirthState  = "#estNasc"
	selPIS         = "#pisPasep"
	selBirthCity   = "#cidNasc"
	selBirthDate   = "#dtNasc"
	selNationality = "#nacionalidade"
	selSex         = "#sexo"
	selEmail       = "#selecaoPadraoEmail"
	selPhone       = "#selecaoTelEmergencial"
	selAvatar      = "#avatar"
)

// Documents tab.
const (
	selRGIssuer    = "#orgEmissorRG"
	selRGState     = "#ufRG"
	selRGNumber    = "#numRG"
	selRGIssueDate = "#dtEmissaoRG"
	selCTPSDigital = "#cmbCTPSDigital"
	selCTPSNumber  = "#numCTPS"
	selCTPSSeries  = "#serieCTPS"
	selCTPSState   = "#ufCTPS"
	selCTPSDate    = "#dtCTPS"
)

// Address tab.
const (
	selAddressTab    = `a[href="#menu1"]`
	selCEP           = "#CEP"
	selCEPSearch     = "#btnPesquisarCep"
	selNeighborhood  = "#nomeBairro"
	selStreet        = "#comboLogradouro"
	selAddressState  = "#comboEstado"
	selAddressNumber = "input#numero.form-control.input"
)

// Professional tab.
const (
	selProfessionalTab = `a[href="#menuProfissional"]`
	selAdmissionDate   = "#dtAdmissao"
	selSalary          = "#salario"
	selWorkSchedule    = "#horMens"
	selJobTitle        = "#cargo"
)

// Save and feedback.
const (
	selSaveDraft       = "#btnSalvarRascunho"
	selModal           = "div.bootbox.modal"
	selModalBody       = "div.bootbox-body"
	selModalOK         = `div.bootbox.modal.in button[data-bb-handler='ok']`
	selModalAnyOK      = `button[data-bb-handler='ok']`
	selValidationError = ".text-danger, .field-validation-error"
	selAlerts          = ".alert, .validation-summary-errors"
)

// Drafts list.
const (
	selListRows     = "table tbody tr"
	selListCPFCell  = "table tbody tr td:nth-child(2)"
	selListNext     = "li.paginate_button.next"
	selListPageSize = "select[name*='length']"
)

// Portal constant option values.
const (
	nationalityBrazilian = "1"
	workScheduleMonthly  = "2"
	pageSizeLarge        = "100"
)
