package bot

const helpText = "Это бот который по билету укрзализныци генерирует pkpass. " +
	"Просто отправьте мне pdf с билетом или скопируйте текст билета в сообщение.\n\n" +
	"/passes - your issued passes\n" +
	"/clear - clear the pass list"

const todoText = "*TODO list:*\n" +
	"- support expire date\n" +
	"- check if everything okay with timezones and winter time\n" +
	"- consider more convenient interface\n" +
	"- make group identifier right"
