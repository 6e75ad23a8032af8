package telepathy

// Client names, without the org.freedesktop.Telepathy.Client. prefix.
const (
	ClientSASLHandler      = "KTp.SASLHandler"
	ClientTLSHandler       = "KTp.TLSHandler"
	ClientCaptchaHandler   = "KTp.CaptchaHandler"
	ClientConfAuthObserver = "KTp.ConfAuthObserver"
)

const (
	clientBusPrefix  = "org.freedesktop.Telepathy.Client."
	clientPathPrefix = "/org/freedesktop/Telepathy/Client/"

	ifaceClient         = "org.freedesktop.Telepathy.Client"
	ifaceClientHandler  = "org.freedesktop.Telepathy.Client.Handler"
	ifaceClientObserver = "org.freedesktop.Telepathy.Client.Observer"

	ifaceProperties = "org.freedesktop.DBus.Properties"

	accountManagerBus   = "org.freedesktop.Telepathy.AccountManager"
	accountPathPrefix   = "/org/freedesktop/Telepathy/Account/"
	ifaceAccount        = "org.freedesktop.Telepathy.Account"
	ifaceAccountStorage = "org.freedesktop.Telepathy.Account.Interface.Storage"

	ifaceChannel         = "org.freedesktop.Telepathy.Channel"
	propChannelType      = ifaceChannel + ".ChannelType"
	propInterfaces       = ifaceChannel + ".Interfaces"
	propTargetID         = ifaceChannel + ".TargetID"
	propTargetHandleType = ifaceChannel + ".TargetHandleType"

	typeServerAuth      = "org.freedesktop.Telepathy.Channel.Type.ServerAuthentication1"
	propAuthMethod      = typeServerAuth + ".AuthenticationMethod"
	typeServerTLS       = "org.freedesktop.Telepathy.Channel.Type.ServerTLSConnection"
	propServerCert      = typeServerTLS + ".ServerCertificate"
	propTLSHostname     = typeServerTLS + ".Hostname"
	propTLSReferenceIDs = typeServerTLS + ".ReferenceIdentities"
	typeText            = "org.freedesktop.Telepathy.Channel.Type.Text"

	ifaceSASL     = "org.freedesktop.Telepathy.Channel.Interface.SASLAuthentication"
	ifaceCaptcha  = "org.freedesktop.Telepathy.Channel.Interface.CaptchaAuthentication1"
	ifacePassword = "org.freedesktop.Telepathy.Channel.Interface.Password"
	ifaceTLSCert  = "org.freedesktop.Telepathy.Authentication.TLSCertificate"

	handleTypeRoom = uint32(2)
)

// Error names returned to the dispatcher or used in certificate rejections.
const (
	errorNotAvailable = "org.freedesktop.Telepathy.Error.NotAvailable"
	errorCertPrefix   = "org.freedesktop.Telepathy.Error.Cert."
)
