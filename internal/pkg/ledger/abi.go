package ledger

// registryABI is the interface of the StudentRegistry contract. Only the entry points used
// by the service are listed.
const registryABI = `[
  {"type":"function","name":"addStudent","stateMutability":"nonpayable","inputs":[
    {"name":"_id","type":"uint256"},
    {"name":"_name","type":"string"},
    {"name":"_course","type":"string"},
    {"name":"_birthDate","type":"string"},
    {"name":"_grade","type":"uint256"},
    {"name":"_wallet","type":"address"}],"outputs":[]},
  {"type":"function","name":"issueDiploma","stateMutability":"nonpayable","inputs":[
    {"name":"_studentId","type":"uint256"},
    {"name":"_recipient","type":"address"},
    {"name":"_tokenURI","type":"string"}],"outputs":[]},
  {"type":"function","name":"removeStudent","stateMutability":"nonpayable","inputs":[
    {"name":"_id","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"students","stateMutability":"view","inputs":[
    {"name":"","type":"uint256"}],"outputs":[
    {"name":"id","type":"uint256"},
    {"name":"name","type":"string"},
    {"name":"course","type":"string"},
    {"name":"birthDate","type":"string"},
    {"name":"grade","type":"uint256"},
    {"name":"isEnrolled","type":"bool"},
    {"name":"wallet","type":"address"},
    {"name":"diplomaTokenId","type":"uint256"}]},
  {"type":"function","name":"studentIds","stateMutability":"view","inputs":[
    {"name":"","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getTotalStudents","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"uint256"}]},
  {"type":"function","name":"tokenURI","stateMutability":"view","inputs":[
    {"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]}
]`

const (
	methodAddStudent    = "addStudent"
	methodIssueDiploma  = "issueDiploma"
	methodRemoveStudent = "removeStudent"
	methodStudents      = "students"
	methodStudentIDs    = "studentIds"
	methodTotalStudents = "getTotalStudents"
	methodTokenURI      = "tokenURI"
)
